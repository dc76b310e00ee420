// Package pages renders the dashboard's server-side page shells: the login form, the landing
// page and one shell per menu section with breadcrumbs and tabs.
package pages

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"backoffice/cmd/internal/durable"
	"backoffice/cmd/internal/guard"
	"backoffice/cmd/internal/menu"
	"backoffice/cmd/internal/pages/routepath"
	"backoffice/cmd/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Config wires the pages to the rest of the app.
type Config struct {
	Menu    *menu.Menu
	Keys    session.Keys
	Cookies durable.CookieOptions

	// CSRF returns the double-submit token for forms on the page.
	CSRF func(w http.ResponseWriter, r *http.Request) string

	// Role returns the role carried by a verified credential in s. The role in the user
	// cookie is client controlled and only used for display. Nil means every request
	// gets the empty menu.
	Role RoleFunc

	Log *slog.Logger
}

// RoleFunc resolves the authorized role of a request, or "" when none verifies.
type RoleFunc func(r *http.Request, s session.Session) string

// Pages serves the HTML shells.
type Pages struct {
	cfg   Config
	log   *slog.Logger
	views map[string]*template.Template
}

type crumb struct {
	Title string
	Href  string
}

type viewData struct {
	Title       string
	User        *session.UserProfile
	Menu        []menu.Item
	Active      string
	Breadcrumbs []crumb
	CSRF        string

	Section *menu.Item
	Tab     menu.Tab

	Next  string
	Error string
}

var viewNames = []string{"home", "section", "forbidden", "login"}

// New parses the embedded templates.
func New(cfg Config) (*Pages, error) {
	if cfg.Menu == nil {
		return nil, errors.New("pages: nil menu")
	}
	if cfg.CSRF == nil {
		return nil, errors.New("pages: nil csrf source")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	funcs := template.FuncMap{"tabURL": routepath.WithTab}
	base, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	views := make(map[string]*template.Template, len(viewNames))
	for _, name := range viewNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, err
		}
		views[name] = t
	}

	return &Pages{cfg: cfg, log: log, views: views}, nil
}

// Register mounts the login page and static assets directly, and every dashboard view
// behind g.
func (p *Pages) Register(mux *http.ServeMux, g *guard.Guard) {
	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET "+routepath.StaticPrefix, http.StripPrefix(routepath.StaticPrefix, http.FileServerFS(static)))

	mux.HandleFunc("GET "+routepath.Login, p.handleLogin)
	mux.Handle("GET /{$}", g.WrapFunc(p.handleHome))
	for _, path := range routepath.Sections() {
		if _, ok := p.cfg.Menu.Lookup(path); !ok {
			p.log.Warn("pages.section.unconfigured", "path", path)
			continue
		}
		mux.Handle("GET "+path, g.WrapFunc(p.handleSection))
	}
}

// sessionOf reads the session from the request cookies without writing anything.
func (p *Pages) sessionOf(r *http.Request) session.Session {
	return session.InitialState(durable.NewCookies(nil, r, p.cfg.Cookies), p.cfg.Keys)
}

func (p *Pages) shell(w http.ResponseWriter, r *http.Request, title string) (viewData, string) {
	s := p.sessionOf(r)
	var role string
	if p.cfg.Role != nil {
		role = p.cfg.Role(r, s)
	}
	return viewData{
		Title:  title,
		User:   s.User,
		Menu:   p.cfg.Menu.ForRole(role),
		Active: r.URL.Path,
		CSRF:   p.cfg.CSRF(w, r),
	}, role
}

func (p *Pages) handleHome(w http.ResponseWriter, r *http.Request) {
	data, _ := p.shell(w, r, "Dashboard")
	p.render(w, http.StatusOK, "home", data)
}

func (p *Pages) handleSection(w http.ResponseWriter, r *http.Request) {
	item, ok := p.cfg.Menu.Lookup(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, role := p.shell(w, r, item.Title)
	data.Breadcrumbs = []crumb{{Title: "Dashboard", Href: routepath.Root}}

	if !item.Visible(role) {
		data.Breadcrumbs = append(data.Breadcrumbs, crumb{Title: item.Title})
		p.render(w, http.StatusForbidden, "forbidden", data)
		return
	}

	tab := item.Tab(r.URL.Query().Get("tab"))
	data.Section = &item
	data.Tab = tab
	data.Breadcrumbs = append(data.Breadcrumbs,
		crumb{Title: item.Title, Href: item.Path},
		crumb{Title: tab.Title},
	)
	p.render(w, http.StatusOK, "section", data)
}

var loginErrors = map[string]string{
	"invalid_credentials": "The login or password is incorrect.",
	"invalid_request":     "Enter your login and password.",
	"rate_limited":        "Too many attempts. Wait a moment and try again.",
	"csrf":                "Your form expired. Please try again.",
	"server_busy":         "The service is busy. Please retry shortly.",
	"server_error":        "Something went wrong. Please try again.",
}

func (p *Pages) handleLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := viewData{
		Title: "Sign in",
		CSRF:  p.cfg.CSRF(w, r),
		Next:  q.Get("next"),
		Error: loginErrors[q.Get("error")],
	}
	p.render(w, http.StatusOK, "login", data)
}

func (p *Pages) render(w http.ResponseWriter, status int, view string, data viewData) {
	var buf bytes.Buffer
	if err := p.views[view].ExecuteTemplate(&buf, "layout", data); err != nil {
		p.log.Error("pages.render.fail", "view", view, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
