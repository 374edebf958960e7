package chain

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Network struct {
	ChainID     uint64 `yaml:"chainId" json:"chainId"`
	Name        string `yaml:"name" json:"name"`
	ExplorerURL string `yaml:"explorerUrl" json:"explorerUrl,omitempty"`
}

var knownNetworks = []Network{
	{ChainID: 1, Name: "Ethereum Mainnet", ExplorerURL: "https://etherscan.io"},
	{ChainID: 3, Name: "Ropsten Testnet", ExplorerURL: "https://ropsten.etherscan.io"},
	{ChainID: 4, Name: "Rinkeby Testnet", ExplorerURL: "https://rinkeby.etherscan.io"},
	{ChainID: 5, Name: "Goerli Testnet", ExplorerURL: "https://goerli.etherscan.io"},
	{ChainID: 42, Name: "Kovan Testnet", ExplorerURL: "https://kovan.etherscan.io"},
	{ChainID: 11155111, Name: "Sepolia Testnet", ExplorerURL: "https://sepolia.etherscan.io"},
}

// Networks maps chain ids to network configurations.
type Networks struct {
	byID map[uint64]Network
}

func DefaultNetworks() *Networks {
	n := &Networks{byID: make(map[uint64]Network, len(knownNetworks))}
	for _, network := range knownNetworks {
		n.byID[network.ChainID] = network
	}
	return n
}

type networksFile struct {
	Networks []Network `yaml:"networks"`
}

// LoadNetworks returns the built-in networks extended, or overridden, by the
// ones listed in the YAML file at path.
func LoadNetworks(path string) (*Networks, error) {
	n := DefaultNetworks()
	if path == "" {
		return n, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error while reading networks file: %w", err)
	}

	var f networksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error while parsing networks file: %w", err)
	}

	for _, network := range f.Networks {
		if network.ChainID == 0 || network.Name == "" {
			return nil, fmt.Errorf("network entries need a chainId and a name, got %+v", network)
		}
		n.byID[network.ChainID] = network
	}

	return n, nil
}

func (n *Networks) Lookup(chainID uint64) (Network, bool) {
	network, ok := n.byID[chainID]
	return network, ok
}

// Name returns the display name of chainID.
func (n *Networks) Name(chainID uint64) string {
	if network, ok := n.byID[chainID]; ok {
		return network.Name
	}
	return fmt.Sprintf("Chain ID: %d", chainID)
}

// List returns all networks ordered by chain id.
func (n *Networks) List() []Network {
	res := make([]Network, 0, len(n.byID))
	for _, network := range n.byID {
		res = append(res, network)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ChainID < res[j].ChainID })
	return res
}
