package dto

import "time"

// IssueTokenRequest describes an access token to mint.
type IssueTokenRequest struct {
	Subject string        `validate:"required"`
	Role    string        `validate:"required,oneof=ADMIN ANALYST"`
	TTL     time.Duration `validate:"gte=0"`
}
