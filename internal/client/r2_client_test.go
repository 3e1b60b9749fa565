package client

import "testing"

func TestR2Client_KeyFromURL(t *testing.T) {
	c := &R2Client{bucketName: "studio", publicURL: "https://cdn.makeasinger.com"}

	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://cdn.makeasinger.com/covers/t1/a.png", "covers/t1/a.png", true},
		{"https://cdn.makeasinger.com/", "", false},
		{"https://img.example.com/covers/t1/a.png", "", false},
	}
	for _, tt := range tests {
		got, ok := c.KeyFromURL(tt.url)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("KeyFromURL(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}

	noCDN := &R2Client{bucketName: "studio"}
	if key, ok := noCDN.KeyFromURL(noCDN.GetPublicURL("covers/x.png")); !ok || key != "covers/x.png" {
		t.Errorf("bucket URL: got %q, %v", key, ok)
	}
}
