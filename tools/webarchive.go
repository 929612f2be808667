package tools

import "github.com/waymcp/waymcp/wayback"

// RegisterWebArchive registers the webarchive tools, each wrapped in the
// given middleware chain (first middleware outermost).
func RegisterWebArchive(r *Registry, client *wayback.Client, mws ...Middleware) {
	for _, t := range []Tool{
		NewGetSnapshot(client),
		NewListSnapshots(client),
		NewSearchSite(client),
	} {
		r.Register(Chain(t, mws...))
	}
}
