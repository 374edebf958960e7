package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

type BuildInfo struct {
	RepoURL   string
	Version   string
	Sha1ver   string
	BuildTime string
	StartedAt time.Time
}

// Debug echoes the request headers along with build information.
func Debug(info BuildInfo) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		a := []string{fmt.Sprintf("url: %s %s", r.Method, r.RequestURI), "Headers:"}

		keys := make([]string, 0, len(r.Header))
		for k := range r.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			switch v := r.Header[k]; len(v) {
			case 0:
				a = append(a, "  "+k)
			case 1:
				a = append(a, fmt.Sprintf("  %s: %v", k, v[0]))
			default:
				a = append(a, "  "+k+":")
				for _, v2 := range v {
					a = append(a, "    "+v2)
				}
			}
		}

		a = append(a,
			"",
			fmt.Sprintf("ver: v%s %s/commit/%s", info.Version, info.RepoURL, info.Sha1ver),
			fmt.Sprintf("built on: %s", info.BuildTime),
			fmt.Sprintf("go: %s", runtime.Version()),
			fmt.Sprintf("uptime: %s", time.Since(info.StartedAt).Round(time.Second)),
			fmt.Sprintf("api version called: %s", mux.Vars(r)["apiVersion"]),
		)

		servePlainText(rw, strings.Join(a, "\n"))
	})
}
