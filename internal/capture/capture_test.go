package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/", "www.example.com_.png"},
		{"https://www.example.com/shop/cart", "www.example.com_shop_cart.png"},
		{"http://127.0.0.1:8080/", "127.0.0.1_8080_.png"},
	}

	for _, tt := range tests {
		if got := FileName(tt.url); got != tt.want {
			t.Errorf("FileName(%q): expected %q, got %q", tt.url, tt.want, got)
		}
	}
}

func TestClassify(t *testing.T) {
	err := classify(context.Background(), fmt.Errorf("navigate: %w", context.DeadlineExceeded))
	if !errors.Is(err, ErrCaptureTimeout) {
		t.Errorf("Expected ErrCaptureTimeout, got %v", err)
	}

	err = classify(context.Background(), errors.New("net::ERR_NAME_NOT_RESOLVED"))
	if !errors.Is(err, ErrCaptureRender) {
		t.Errorf("Expected ErrCaptureRender, got %v", err)
	}
}

func TestNewBrowserDefaults(t *testing.T) {
	dir := t.TempDir()

	b, err := NewBrowser(Options{Dir: dir})
	if err != nil {
		t.Fatalf("NewBrowser failed: %v", err)
	}
	defer b.Close()

	if b.opts.Wait != WaitNetworkIdle {
		t.Errorf("Expected default wait %q, got %q", WaitNetworkIdle, b.opts.Wait)
	}
	if b.Dir() != dir {
		t.Errorf("Expected dir %q, got %q", dir, b.Dir())
	}

	if b.Running() {
		t.Error("Expected browser not to launch before the first capture")
	}
}

func requireChromium(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chromium binary found")
	return ""
}

func TestCapture(t *testing.T) {
	execPath := requireChromium(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>sentinel</h1></body></html>"))
	}))
	defer ts.Close()

	for _, wait := range []string{WaitNetworkIdle, WaitLoad} {
		t.Run(wait, func(t *testing.T) {
			dir := t.TempDir()
			b, err := NewBrowser(Options{Dir: dir, Wait: wait, Timeout: 30 * time.Second, ExecPath: execPath})
			if err != nil {
				t.Fatalf("NewBrowser failed: %v", err)
			}
			defer b.Close()

			name, err := b.Capture(context.Background(), ts.URL+"/")
			if err != nil {
				t.Fatalf("Capture failed: %v", err)
			}
			if name != FileName(ts.URL+"/") {
				t.Errorf("Expected file %s, got %s", FileName(ts.URL+"/"), name)
			}

			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("Failed to read screenshot: %v", err)
			}
			if !bytes.HasPrefix(data, []byte("\x89PNG")) {
				t.Error("Expected a PNG file")
			}

			first := b.browserCtx
			if _, err := b.Capture(context.Background(), ts.URL+"/again"); err != nil {
				t.Fatalf("Second capture failed: %v", err)
			}
			if b.browserCtx != first || !b.Running() {
				t.Error("Expected captures to share one browser process")
			}
		})
	}
}
