package guard

import "net/http"

// Navigator moves the client to another path.
type Navigator interface {
	Navigate(w http.ResponseWriter, r *http.Request, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(w http.ResponseWriter, r *http.Request, path string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(w http.ResponseWriter, r *http.Request, path string) { f(w, r, path) }

// RedirectNavigator answers with 302 Found and a Location header, without a body.
type RedirectNavigator struct{}

// Navigate implements Navigator.
func (RedirectNavigator) Navigate(w http.ResponseWriter, _ *http.Request, path string) {
	w.Header().Set("Location", path)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusFound)
}
