package extensions

import (
	"github.com/dalnet/ircore/internal/auxparse"
	"github.com/dalnet/ircore/internal/extension"
)

// caseMapping returns the connection's casemapping. Without the isupport
// extension the RFC 1459 rules apply.
func caseMapping(conn extension.Conn) auxparse.CaseMapping {
	if is, ok := conn.Extension("isupport").(*ISupport); ok {
		return is.CaseMapping()
	}
	return auxparse.CaseRFC1459
}

// sameName compares two nicks or channel names the way the server does.
func sameName(conn extension.Conn, a, b string) bool {
	return caseMapping(conn).Equal(a, b)
}
