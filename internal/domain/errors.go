package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCourse        = errors.New("invalid course")
	ErrCourseNotPurchasable = errors.New("course is not purchasable")
	ErrCoursePaid           = errors.New("course is paid")
	ErrAlreadyPurchased     = errors.New("already purchased")
	ErrSignatureMismatch    = errors.New("signature verification failed")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrGatewayRejected      = errors.New("payment gateway rejected the request")
	ErrSandboxDisabled      = errors.New("sandbox payments are disabled")
	ErrWebhookSignature     = errors.New("invalid webhook signature")
	ErrWebhookNotConfigured = errors.New("webhook secret not configured")

	// ErrCourseNotFound is a kind of ErrInvalidCourse.
	ErrCourseNotFound = fmt.Errorf("%w: course not found", ErrInvalidCourse)
)

// Kind is the stable, machine-readable name of an error reported to callers.
type Kind string

const (
	KindInvalidCourse        Kind = "INVALID_COURSE"
	KindCourseNotFound       Kind = "COURSE_NOT_FOUND"
	KindCourseNotPurchasable Kind = "COURSE_NOT_PURCHASABLE"
	KindCoursePaid           Kind = "COURSE_PAID"
	KindAlreadyPurchased     Kind = "ALREADY_PURCHASED"
	KindSignatureMismatch    Kind = "SIGNATURE_MISMATCH"
	KindEnrollmentNotFound   Kind = "ENROLLMENT_NOT_FOUND"
	KindNotAuthorized        Kind = "NOT_AUTHORIZED"
	KindGatewayUnavailable   Kind = "GATEWAY_UNAVAILABLE"
	KindGatewayRejected      Kind = "GATEWAY_REJECTED"
	KindSandboxDisabled      Kind = "SANDBOX_DISABLED"
	KindWebhookSignature     Kind = "WEBHOOK_SIGNATURE"
	KindWebhookNotConfigured Kind = "WEBHOOK_NOT_CONFIGURED"
	KindInternal             Kind = "INTERNAL"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrCourseNotFound, KindCourseNotFound},
	{ErrInvalidCourse, KindInvalidCourse},
	{ErrCourseNotPurchasable, KindCourseNotPurchasable},
	{ErrCoursePaid, KindCoursePaid},
	{ErrAlreadyPurchased, KindAlreadyPurchased},
	{ErrSignatureMismatch, KindSignatureMismatch},
	{ErrEnrollmentNotFound, KindEnrollmentNotFound},
	{ErrNotAuthorized, KindNotAuthorized},
	{ErrGatewayUnavailable, KindGatewayUnavailable},
	{ErrGatewayRejected, KindGatewayRejected},
	{ErrSandboxDisabled, KindSandboxDisabled},
	{ErrWebhookSignature, KindWebhookSignature},
	{ErrWebhookNotConfigured, KindWebhookNotConfigured},
}

// ErrorKind classifies err. Anything outside the taxonomy is KindInternal.
func ErrorKind(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
