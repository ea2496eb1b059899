//go:build browser

package web

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"
)

// Run with: go test -tags browser ./internal/adapters/http/
// Needs the Playwright browsers installed (go run github.com/playwright-community/playwright-go/cmd/playwright install chromium).

type browserApp struct {
	BaseURL string
	Browser playwright.Browser
}

func newBrowserApp(t *testing.T) *browserApp {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	srv := httptest.NewServer(newTestServer(t, true).Handler())
	t.Cleanup(srv.Close)

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		t.Fatalf("failed to launch browser: %v", err)
	}
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
	})
	return &browserApp{BaseURL: srv.URL, Browser: browser}
}

func (a *browserApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

func (a *browserApp) waitFor(t *testing.T, page playwright.Page, path string) {
	t.Helper()
	if err := page.WaitForURL(a.BaseURL+path, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("never reached %s: %v", path, err)
	}
}

func bodyText(t *testing.T, page playwright.Page) string {
	t.Helper()
	text, err := page.Locator("body").InnerText()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return text
}

// TestBrowser_StartingPageRedirects verifies the course page hands off to the
// first lesson and a guest can read the preview.
func TestBrowser_StartingPageRedirects(t *testing.T) {
	app := newBrowserApp(t)
	page := app.newPage(t)

	if _, err := page.Goto(app.BaseURL + "/courses/100"); err != nil {
		t.Fatalf("goto: %v", err)
	}
	app.waitFor(t, page, "/courses/100/lessons/101")

	if text := bodyText(t, page); !strings.Contains(text, "Find a quiet place") {
		t.Errorf("preview body missing, got:\n%s", text)
	}
}

// TestBrowser_EnrollAndComplete logs in, enrolls in the free course and
// completes its only lesson.
func TestBrowser_EnrollAndComplete(t *testing.T) {
	app := newBrowserApp(t)
	page := app.newPage(t)

	if _, err := page.Goto(app.BaseURL + "/login?next=/courses/200"); err != nil {
		t.Fatalf("goto login: %v", err)
	}
	if err := page.Locator("input[name=email]").Fill(studentEmail); err != nil {
		t.Fatalf("fill email: %v", err)
	}
	if err := page.Locator("input[name=password]").Fill(studentPassword); err != nil {
		t.Fatalf("fill password: %v", err)
	}
	if err := page.Locator("section.login button[type=submit]").Click(); err != nil {
		t.Fatalf("submit login: %v", err)
	}
	app.waitFor(t, page, "/courses/200/lessons/201")

	if err := page.Locator(".offer button[type=submit]").Click(); err != nil {
		t.Fatalf("click enroll: %v", err)
	}
	complete := page.GetByRole("button", playwright.PageGetByRoleOptions{Name: "Mark complete"})
	if err := complete.WaitFor(); err != nil {
		t.Fatalf("enrolled lesson never rendered: %v", err)
	}

	if err := complete.Click(); err != nil {
		t.Fatalf("click complete: %v", err)
	}
	if err := page.GetByText("1 / 1 Completed").WaitFor(); err != nil {
		t.Fatalf("completion never shown: %v", err)
	}

	text := bodyText(t, page)
	for _, want := range []string{"1 / 1 Completed", "Course Complete"} {
		if !strings.Contains(text, want) {
			t.Errorf("page missing %q, got:\n%s", want, text)
		}
	}
}
