package captcha

import (
	"fmt"
	"time"
)

// Purpose scopes a verification code to the business flow it was issued for.
type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposeLogin         Purpose = "login"
	PurposeResetPassword Purpose = "reset_password"
	PurposeBindEmail     Purpose = "bind_email"
)

// expiry per purpose; reset codes live longer because the flow has more steps.
var purposeTTLs = map[Purpose]time.Duration{
	PurposeRegister:      10 * time.Minute,
	PurposeLogin:         5 * time.Minute,
	PurposeResetPassword: 15 * time.Minute,
	PurposeBindEmail:     10 * time.Minute,
}

// ParsePurpose validates a raw purpose string from the API.
func ParsePurpose(raw string) (Purpose, error) {
	p := Purpose(raw)
	if _, ok := purposeTTLs[p]; !ok {
		return "", fmt.Errorf("captcha: unknown purpose %q", raw)
	}
	return p, nil
}

// TTL returns how long a code issued for this purpose stays valid.
func (p Purpose) TTL() time.Duration {
	if ttl, ok := purposeTTLs[p]; ok {
		return ttl
	}
	return 5 * time.Minute
}

func (p Purpose) String() string {
	return string(p)
}
