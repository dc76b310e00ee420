package routepath

import "testing"

func TestTopLevelRoutes(t *testing.T) {
	t.Parallel()

	if Root != "/" {
		t.Fatalf("Root = %q", Root)
	}
	if Login != "/login" {
		t.Fatalf("Login = %q", Login)
	}
	if StaticPrefix != "/static/" {
		t.Fatalf("StaticPrefix = %q", StaticPrefix)
	}
	want := []string{"/home-page", "/about-us", "/contact-us", "/departments", "/join-us", "/partner"}
	got := Sections()
	if len(got) != len(want) {
		t.Fatalf("Sections() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sections()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWithTab(t *testing.T) {
	t.Parallel()

	if got := WithTab(AboutUs, "team"); got != "/about-us?tab=team" {
		t.Fatalf("WithTab = %q", got)
	}
	if got := WithTab(AboutUs, " "); got != AboutUs {
		t.Fatalf("WithTab blank = %q", got)
	}
	if got := WithTab(AboutUs, "a&b"); got != "/about-us?tab=a%26b" {
		t.Fatalf("WithTab escaped = %q", got)
	}
}

func TestLoginNext(t *testing.T) {
	t.Parallel()

	if got := LoginNext("/partner?tab=requests"); got != "/login?next=%2Fpartner%3Ftab%3Drequests" {
		t.Fatalf("LoginNext = %q", got)
	}
	if got := LoginNext(Root); got != Login {
		t.Fatalf("LoginNext(root) = %q", got)
	}
}
