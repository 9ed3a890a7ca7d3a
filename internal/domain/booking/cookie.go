package booking

import "strings"

// JoinSetCookies folds Set-Cookie directives into one Cookie header value.
// Each directive contributes its "name=value;" plus the separator space that
// follows it; attributes after the first separator are dropped. Order is kept.
//
//	JoinSetCookies([]string{"a=1; Path=/", "b=2; HttpOnly"}) == "a=1; b=2; "
func JoinSetCookies(setCookies []string) Session {
	var b strings.Builder
	for _, sc := range setCookies {
		sc = strings.TrimSpace(sc)
		if sc == "" {
			continue
		}
		if i := strings.IndexByte(sc, ';'); i >= 0 {
			b.WriteString(sc[:i+1])
		} else {
			b.WriteString(sc)
			b.WriteByte(';')
		}
		b.WriteByte(' ')
	}
	return Session(b.String())
}
