package net

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// LinkScheme is the URL scheme of canvas share links.
const LinkScheme = "canvasboard"

var ErrBadLink = errors.New("not a canvas link")

// Link addresses one document on a document service, e.g.
// canvasboard://192.168.1.20:8080/canvas/<id>?viewOnly=true.
type Link struct {
	Host     string // host:port of the document service
	ID       string
	ViewOnly bool
	Secure   bool // service speaks https
}

func (l Link) String() string {
	u := url.URL{Scheme: LinkScheme, Host: l.Host, Path: "/canvas/" + l.ID}
	q := url.Values{}
	if l.ViewOnly {
		q.Set("viewOnly", "true")
	}
	if l.Secure {
		q.Set("secure", "true")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ServiceURL is the HTTP root of the linked document service.
func (l Link) ServiceURL() string {
	if l.Secure {
		return "https://" + l.Host
	}
	return "http://" + l.Host
}

// ParseLink parses a share link. A bare http(s) URL of the same shape
// is accepted too; an https URL yields a Secure link.
func ParseLink(s string) (Link, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrBadLink, err)
	}
	switch u.Scheme {
	case LinkScheme, "http", "https":
	default:
		return Link{}, fmt.Errorf("%w: scheme %q", ErrBadLink, u.Scheme)
	}
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		return Link{}, fmt.Errorf("%w: host %q needs a port", ErrBadLink, u.Host)
	}
	id, ok := strings.CutPrefix(u.Path, "/canvas/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return Link{}, fmt.Errorf("%w: path %q", ErrBadLink, u.Path)
	}
	q := u.Query()
	return Link{
		Host:     u.Host,
		ID:       id,
		ViewOnly: q.Get("viewOnly") == "true",
		Secure:   u.Scheme == "https" || q.Get("secure") == "true",
	}, nil
}
