// internal/model/entitlement.go
package model

// DenyReason はアクセス拒否の理由を表します
type DenyReason string

const (
	DenyCourseNotPublished DenyReason = "COURSE_NOT_PUBLISHED"
	DenyEnrollmentRequired DenyReason = "ENROLLMENT_REQUIRED"
)

// AccessDecision はレッスン閲覧可否の判定結果です。
// 判定自体はエラーではないため、error ではなくこの型で返します。
type AccessDecision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

// Allow は許可の判定を返します
func Allow() AccessDecision {
	return AccessDecision{Allowed: true}
}

// Deny は理由付きの拒否判定を返します
func Deny(reason DenyReason) AccessDecision {
	return AccessDecision{Allowed: false, Reason: reason}
}
