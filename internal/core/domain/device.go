package domain

import "strings"

// Role is a normalized device role as reported by a telemetry source.
type Role string

const (
	RoleGateway Role = "gateway"
	RoleRouter  Role = "router"
	RoleSwitch  Role = "switch"
	RoleAP      Role = "ap"
	RolePTP     Role = "ptp"
	RoleStation Role = "station"
)

// roleAliases maps the aliases UISP-style sources use for wireless and
// subscriber gear onto canonical roles.
var roleAliases = map[string]Role{
	"access-point": RoleAP,
	"accesspoint":  RoleAP,
	"base-station": RoleAP,
	"basestation":  RoleAP,
	"base":         RoleAP,
	"cpe":          RoleStation,
	"client":       RoleStation,
	"subscriber":   RoleStation,
	"endpoint":     RoleStation,
}

// NormalizeRole lowercases, trims and de-aliases a raw role string.
func NormalizeRole(raw string) Role {
	r := strings.ToLower(strings.TrimSpace(raw))
	r = strings.NewReplacer(" ", "-", "_", "-").Replace(r)
	if alias, ok := roleAliases[r]; ok {
		return alias
	}
	return Role(strings.ReplaceAll(r, "-", ""))
}

func (r Role) IsGateway() bool { return r == RoleGateway }
func (r Role) IsRouter() bool  { return r == RoleRouter }
func (r Role) IsSwitch() bool  { return r == RoleSwitch }

// IsAP reports whether the role belongs to the access-point family.
// PTP bridges and home wifi units count as APs for display and alerting.
func (r Role) IsAP() bool {
	switch r {
	case RoleAP, "wireless", "homewifi", "wirelessdevice", RolePTP:
		return true
	}
	return false
}

func (r Role) IsStation() bool { return r == RoleStation }

// IsBackbone reports whether the role is eligible for alerting:
// gateways, routers, switches, APs and PTP links.
func (r Role) IsBackbone() bool {
	switch r {
	case RoleGateway, RoleRouter, RoleSwitch, RoleAP, RolePTP:
		return true
	}
	return false
}

// Label returns a human-readable label for the role.
func (r Role) Label() string {
	switch r {
	case RoleAP:
		return "Access Point"
	case RoleStation:
		return "Station"
	case RolePTP:
		return "PTP"
	case "gpon":
		return "GPON"
	case "homewifi":
		return "Home WiFi"
	case "wirelessdevice":
		return "Wireless"
	}
	if r == "" {
		return "Device"
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// DeviceSample is one observation of a device from one source during one
// poll cycle. Samples are ephemeral; persistent per-device state lives in
// DeviceState.
type DeviceSample struct {
	// Key is the stable identity: hardware MAC, else the source-assigned
	// id, else the name. First non-empty wins.
	Key      string
	Name     string
	Role     Role
	Online   bool
	Hostname string
	Site     string
	SiteID   string
	MAC      string
	Serial   string
	Vendor   string
	Model    string
	IP       string

	CPU         *float64
	RAM         *float64
	Temperature *float64
	LatencyMs   *float64
	UptimeSec   *float64

	SourceID   string
	SourceName string
}

// IdentityKey derives the stable device key from the raw identification
// fields of a source record.
func IdentityKey(mac, id, name string) string {
	for _, v := range []string{mac, id, name} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "unknown"
}

// Monitored reports whether the sample belongs to a category the wall
// tracks at all. Stations and unclassified gear are discarded before any
// state mutation.
func (s DeviceSample) Monitored() bool {
	return s.Role.IsGateway() || s.Role.IsAP() || s.Role.IsRouter() || s.Role.IsSwitch()
}

var onlineStatuses = map[string]bool{
	"ok":        true,
	"online":    true,
	"active":    true,
	"connected": true,
	"reachable": true,
	"enabled":   true,
}

// OnlineStatus reports whether a raw source status string means online.
func OnlineStatus(raw string) bool {
	return onlineStatuses[strings.ToLower(strings.TrimSpace(raw))]
}
