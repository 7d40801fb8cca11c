package net

import (
	"errors"
	"testing"
)

func TestLinkString(t *testing.T) {
	l := Link{Host: "10.0.0.2:8080", ID: "abc"}
	if got := l.String(); got != "canvasboard://10.0.0.2:8080/canvas/abc" {
		t.Errorf("edit link = %q", got)
	}
	l.ViewOnly = true
	if got := l.String(); got != "canvasboard://10.0.0.2:8080/canvas/abc?viewOnly=true" {
		t.Errorf("view link = %q", got)
	}
}

func TestParseLink(t *testing.T) {
	tests := []struct {
		in      string
		want    Link
		wantErr bool
	}{
		{in: "canvasboard://10.0.0.2:8080/canvas/abc", want: Link{Host: "10.0.0.2:8080", ID: "abc"}},
		{in: "canvasboard://10.0.0.2:8080/canvas/abc?viewOnly=true", want: Link{Host: "10.0.0.2:8080", ID: "abc", ViewOnly: true}},
		{in: "http://localhost:9000/canvas/x-1", want: Link{Host: "localhost:9000", ID: "x-1"}},
		{in: "https://board.example:443/canvas/abc", want: Link{Host: "board.example:443", ID: "abc", Secure: true}},
		{in: "canvasboard://10.0.0.2:8080/canvas/abc?secure=true", want: Link{Host: "10.0.0.2:8080", ID: "abc", Secure: true}},
		{in: "localboard://10.0.0.2:8888", wantErr: true},
		{in: "canvasboard://10.0.0.2/canvas/abc", wantErr: true},
		{in: "canvasboard://10.0.0.2:8080/canvas/", wantErr: true},
		{in: "canvasboard://10.0.0.2:8080/board/abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLink(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrBadLink) {
					t.Fatalf("ParseLink() error = %v, want ErrBadLink", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLink() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLink() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLinkRoundTrip(t *testing.T) {
	l := Link{Host: "host:1", ID: "9f0c", ViewOnly: true}
	got, err := ParseLink(l.String())
	if err != nil || got != l {
		t.Errorf("ParseLink(String()) = %+v, %v", got, err)
	}
}

func TestLinkServiceURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"canvasboard://10.0.0.2:8080/canvas/abc", "http://10.0.0.2:8080"},
		{"http://localhost:9000/canvas/abc", "http://localhost:9000"},
		{"https://board.example:443/canvas/abc", "https://board.example:443"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, err := ParseLink(tt.in)
			if err != nil {
				t.Fatalf("ParseLink() error = %v", err)
			}
			if got := l.ServiceURL(); got != tt.want {
				t.Errorf("ServiceURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecureLinkRoundTrip(t *testing.T) {
	l := Link{Host: "board.example:443", ID: "abc", ViewOnly: true, Secure: true}
	got, err := ParseLink(l.String())
	if err != nil || got != l {
		t.Errorf("ParseLink(String()) = %+v, %v", got, err)
	}
}
