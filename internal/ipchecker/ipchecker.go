// Package ipchecker extracts client addresses from HTTP requests and guards
// internal endpoints so that only callers from a trusted subnet reach them.
package ipchecker

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/jobtracker/internal/httpresponse"
	"github.com/patric-chuzhbe/jobtracker/internal/logger"
)

// ErrNoClientIP is returned when no address can be read from a request.
var ErrNoClientIP = errors.New("no client IP in request")

// IPChecker decides whether a client address belongs to the trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates an IPChecker for a subnet in CIDR notation (e.g. "192.168.1.0/24").
// An empty string yields a checker that trusts nobody.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
	}

	return &IPChecker{
		trustedSubnet: allowedNet,
	}, nil
}

// Check reports whether clientIP is inside the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP reads the client address from X-Real-IP, then the first entry
// of X-Forwarded-For, then RemoteAddr.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip, nil
		}
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/GetClientIP(): error while `net.SplitHostPort()` calling: %w", err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil, ErrNoClientIP
	}

	return ip, nil
}

// IsTrustedSubnetEmpty returns true if the IPChecker was initialized
// without a trusted subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// TrustedSubnetOnly rejects with 403 every request whose client address is
// outside the trusted subnet. With no subnet configured everything is rejected.
func (checker *IPChecker) TrustedSubnetOnly(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		clientIP, err := checker.GetClientIP(request)
		if err != nil {
			logger.Log.Debugw("cannot read client IP", "err", err)
		}

		if !checker.Check(clientIP) {
			httpresponse.WriteErrorStatus(response, http.StatusForbidden, http.StatusText(http.StatusForbidden))
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
