package server

import (
	"encoding/json"
	"net/http"

	"doc-convert/internal/convert"
)

type routeInfo struct {
	Path    string   `json:"path"`
	Method  string   `json:"method"`
	Field   string   `json:"field"`
	Source  string   `json:"source"`
	Accepts []string `json:"accepts"`
	Targets []string `json:"targets"`
	Aliases []string `json:"aliases,omitempty"`
}

type routesResp struct {
	Service string      `json:"service"`
	Version string      `json:"version"`
	Routes  []routeInfo `json:"routes"`
}

// handleRoutes lists every conversion route with its accepted inputs.
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeJSONError(w, r, http.StatusMethodNotAllowed, convert.KindClientInput, "method not allowed")
		return
	}

	aliases := make(map[string][]string)
	for _, a := range convert.LegacyAliases {
		aliases[a.Route] = append(aliases[a.Route], "/"+a.Path)
	}

	resp := routesResp{Service: "doc-convert", Version: s.build.Version}
	for _, route := range s.registry.Routes() {
		info := routeInfo{
			Path:    "/" + route.Name,
			Method:  http.MethodPost,
			Field:   "file",
			Source:  route.Source.Name,
			Accepts: route.Source.Extensions,
			Aliases: aliases[route.Name],
		}
		for _, t := range route.Targets {
			info.Targets = append(info.Targets, t.Format)
		}
		resp.Routes = append(resp.Routes, info)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
