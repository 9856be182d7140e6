// Package http holds the small request/response helpers used by route
// providers and the kernel's introspection endpoint.
//
//	func (h *handlers) show(w http.ResponseWriter, r *http.Request) {
//	    req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
//	    res.Success(map[string]any{"id": req.RouteParam("id")})
//	}
package http
