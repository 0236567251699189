package sessions

import "time"

// Session is a persistent refresh session. Role is captured at login so a
// refreshed access token carries the same role the credential verifier
// established; a role change requires a fresh login.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	Subject      string    `bson:"subject" json:"subject"`
	Role         string    `bson:"role" json:"role"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
