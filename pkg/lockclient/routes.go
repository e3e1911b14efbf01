package lockclient

import "strings"

var (
	// alwaysAllowed stay reachable while locked.
	alwaysAllowed = []string{"/", "/home", "/login", "/my-registrations"}
	// blockedWhileLocked are the directory-style pages that would leak
	// other events.
	blockedWhileLocked = []string{"/events", "/eventFlow", "/memories", "/meetourteam"}
)

const eventPrefix = "/event"

// under reports whether path is base itself or a sub-path of it.  "/"
// only matches itself.
func under(path, base string) bool {
	if path == base {
		return true
	}
	if base == "/" {
		return false
	}
	return strings.HasPrefix(path, base+"/")
}

// RouteAllowed is the navigation policy for a snapshot.  Without an
// event every path is allowed.  With one, the allow-list and the locked
// event's own namespace are reachable; directory pages and every other
// event are not.
func RouteAllowed(s Snapshot, path string) bool {
	if s.Event == nil {
		return true
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	for _, p := range alwaysAllowed {
		if under(path, p) {
			return true
		}
	}
	if under(path, eventPrefix+"/"+s.Event.Slug) {
		return true
	}
	for _, p := range blockedWhileLocked {
		if under(path, p) {
			return false
		}
	}
	if strings.HasPrefix(path, eventPrefix+"/") {
		return false
	}
	return true
}
