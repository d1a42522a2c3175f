// Package locator discovers the local weather station on a /24 subnet.
package locator

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/atomic"
)

// Hosts .1 through .64 of the subnet are probed.
const scanHosts = 64

// Status is the outcome of an address lookup.
type Status int

const (
	Unconfigured Status = iota
	Pending
	Addressed
)

func (s Status) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Pending:
		return "pending"
	case Addressed:
		return "addressed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is the locator's observable state.
type State string

const (
	StateUnconfigured State = "unconfigured"
	StateNoAddress    State = "no_address"
	StateScanning     State = "scanning"
	StateAddressed    State = "addressed"
)

// Prober reports whether a station answers at host:port.
type Prober interface {
	Probe(ctx context.Context, host string, port int) bool
}

// HTTPProber probes with a GET against the station's reading endpoint.
type HTTPProber struct {
	Client *http.Client
}

func (p HTTPProber) Probe(ctx context.Context, host string, port int) bool {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL(host, port), nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// URL is the station reading endpoint at host:port.
func URL(host string, port int) string {
	return fmt.Sprintf("http://%s/weather", net.JoinHostPort(host, fmt.Sprint(port)))
}

// Config configures a Locator. An empty Subnet disables discovery.
type Config struct {
	// Subnet holds the first three octets, e.g. "192.168.1".
	Subnet       string
	Port         int
	ProbeTimeout time.Duration
	// Cooldown is the number of lookups answered Pending after a scan
	// finds nothing.
	Cooldown int
	Prober   Prober
	// OnScan is called after every completed scan.
	OnScan func(found bool)
}

// Locator caches the station address and rescans when it is unknown.
type Locator struct {
	cfg Config

	address  *atomic.String
	scanning *atomic.Bool
	cooldown *atomic.Int32
	scans    *atomic.Int64
}

// New validates cfg and returns a Locator.
func New(cfg Config) (*Locator, error) {
	if cfg.Subnet != "" {
		ip := net.ParseIP(cfg.Subnet + ".1")
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("invalid station subnet %q", cfg.Subnet)
		}
	}
	if cfg.Port <= 0 {
		cfg.Port = 11000
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 600 * time.Millisecond
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.Prober == nil {
		cfg.Prober = HTTPProber{}
	}

	return &Locator{
		cfg:      cfg,
		address:  atomic.NewString(""),
		scanning: atomic.NewBool(false),
		cooldown: atomic.NewInt32(0),
		scans:    atomic.NewInt64(0),
	}, nil
}

// Port returns the station port.
func (l *Locator) Port() int {
	return l.cfg.Port
}

// Scans returns the number of scans started so far.
func (l *Locator) Scans() int64 {
	return l.scans.Load()
}

// Known returns the cached address without scanning, or "".
func (l *Locator) Known() string {
	return l.address.Load()
}

// State reports the current state without side effects.
func (l *Locator) State() State {
	switch {
	case l.cfg.Subnet == "":
		return StateUnconfigured
	case l.scanning.Load():
		return StateScanning
	case l.address.Load() != "":
		return StateAddressed
	default:
		return StateNoAddress
	}
}

// Address returns the known station address, scanning for one if needed.
// At most one scan runs at a time; concurrent callers get Pending.
func (l *Locator) Address(ctx context.Context) (string, Status) {
	if l.cfg.Subnet == "" {
		return "", Unconfigured
	}
	if l.scanning.Load() {
		return "", Pending
	}
	if l.consumeCooldown() {
		return "", Pending
	}
	if addr := l.address.Load(); addr != "" {
		return addr, Addressed
	}
	if !l.scanning.CAS(false, true) {
		return "", Pending
	}
	defer l.scanning.Store(false)

	addr := l.scan(ctx)
	if addr == "" {
		l.cooldown.Store(int32(l.cfg.Cooldown))
		return "", Pending
	}
	l.address.Store(addr)
	return addr, Addressed
}

// Invalidate forgets addr if it is still the known address.
func (l *Locator) Invalidate(addr string) {
	if addr != "" && l.address.Load() == addr {
		l.address.Store("")
		log.Printf("INFO: locator: station at %s invalidated", addr)
	}
}

func (l *Locator) consumeCooldown() bool {
	for {
		n := l.cooldown.Load()
		if n <= 0 {
			return false
		}
		if l.cooldown.CAS(n, n-1) {
			return true
		}
	}
}

func (l *Locator) scan(ctx context.Context) string {
	l.scans.Inc()
	log.Printf("DEBUG: locator: scanning %s.1-%d on port %d", l.cfg.Subnet, scanHosts, l.cfg.Port)

	found := ""
	for i := 1; i <= scanHosts && ctx.Err() == nil; i++ {
		host := fmt.Sprintf("%s.%d", l.cfg.Subnet, i)
		pctx, cancel := context.WithTimeout(ctx, l.cfg.ProbeTimeout)
		ok := l.cfg.Prober.Probe(pctx, host, l.cfg.Port)
		cancel()
		if ok {
			found = host
			break
		}
	}

	if found != "" {
		log.Printf("INFO: locator: station found at %s", found)
	} else {
		log.Printf("INFO: locator: no station found on %s.0/24", l.cfg.Subnet)
	}
	if l.cfg.OnScan != nil {
		l.cfg.OnScan(found != "")
	}
	return found
}
