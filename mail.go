package fmailer

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	ValidMinAddressLength  = 5
	ValidMaxAddressLength  = 254
	ValidMinSubjectLength  = 1
	ValidMaxSubjectLength  = 255
	ValidMinBodyLength     = 1
	ValidMaxBodyLength     = 50000
	ValidMinTemplateLength = 1
	ValidMaxTemplateLength = 100
	ValidMinLangLength     = 2
	ValidMaxLangLength     = 8
)

// NewIdempotencyKey returns a fresh opaque key suitable for the idempotency_key
// field. The backend uses it to deduplicate sends; the SDK never interprets it.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

// SimpleMail describes one plain email: recipient, sender, subject and body.
// Values are immutable once built; construct them with SimpleMailBuilder.
type SimpleMail struct {
	// recipient is the destination email address
	recipient string

	// sender is the source email address
	sender string

	// subject is the subject line of the email
	subject string

	// body is the body of the email (HTML allowed)
	body string

	// idempotencyKey is an optional opaque dedup token, forwarded verbatim
	idempotencyKey string
}

type SimpleMailBuilder struct {
	mail SimpleMail
}

func NewSimpleMailBuilder() *SimpleMailBuilder {
	return &SimpleMailBuilder{}
}

func (b *SimpleMailBuilder) WithRecipient(recipient string) *SimpleMailBuilder {
	b.mail.recipient = recipient
	return b
}

func (b *SimpleMailBuilder) WithSender(sender string) *SimpleMailBuilder {
	b.mail.sender = sender
	return b
}

func (b *SimpleMailBuilder) WithSubject(subject string) *SimpleMailBuilder {
	b.mail.subject = subject
	return b
}

func (b *SimpleMailBuilder) WithBody(body string) *SimpleMailBuilder {
	b.mail.body = body
	return b
}

func (b *SimpleMailBuilder) WithIdempotencyKey(key string) *SimpleMailBuilder {
	b.mail.idempotencyKey = key
	return b
}

func (b *SimpleMailBuilder) Build() (SimpleMail, error) {
	if err := validateAddress("recipient", b.mail.recipient); err != nil {
		return SimpleMail{}, err
	}

	if err := validateAddress("sender", b.mail.sender); err != nil {
		return SimpleMail{}, err
	}

	if len(b.mail.subject) < ValidMinSubjectLength || len(b.mail.subject) > ValidMaxSubjectLength {
		return SimpleMail{}, &ClientError{
			Message: fmt.Sprintf("subject must be between %d and %d characters", ValidMinSubjectLength, ValidMaxSubjectLength),
		}
	}

	if len(b.mail.body) < ValidMinBodyLength || len(b.mail.body) > ValidMaxBodyLength {
		return SimpleMail{}, &ClientError{
			Message: fmt.Sprintf("body must be between %d and %d characters", ValidMinBodyLength, ValidMaxBodyLength),
		}
	}

	return b.mail, nil
}

// TemplatedMail describes one templated email: a template identifier with an
// optional language and parameter mapping, rendered by the backend.
// Values are immutable once built; construct them with TemplatedMailBuilder.
type TemplatedMail struct {
	// template is the backend-side template identifier
	template string

	// recipient is the destination email address
	recipient string

	// sender is the source email address
	sender string

	// lang is an optional language code, e.g. "en" or "ru"
	lang string

	// params holds optional template parameters
	params map[string]any

	// idempotencyKey is an optional opaque dedup token, forwarded verbatim
	idempotencyKey string
}

type TemplatedMailBuilder struct {
	mail TemplatedMail
}

func NewTemplatedMailBuilder() *TemplatedMailBuilder {
	return &TemplatedMailBuilder{}
}

func (b *TemplatedMailBuilder) WithTemplate(template string) *TemplatedMailBuilder {
	b.mail.template = template
	return b
}

func (b *TemplatedMailBuilder) WithRecipient(recipient string) *TemplatedMailBuilder {
	b.mail.recipient = recipient
	return b
}

func (b *TemplatedMailBuilder) WithSender(sender string) *TemplatedMailBuilder {
	b.mail.sender = sender
	return b
}

func (b *TemplatedMailBuilder) WithLang(lang string) *TemplatedMailBuilder {
	b.mail.lang = lang
	return b
}

func (b *TemplatedMailBuilder) WithParams(params map[string]any) *TemplatedMailBuilder {
	b.mail.params = params
	return b
}

func (b *TemplatedMailBuilder) WithParam(key string, value any) *TemplatedMailBuilder {
	if b.mail.params == nil {
		b.mail.params = make(map[string]any)
	}
	b.mail.params[key] = value
	return b
}

func (b *TemplatedMailBuilder) WithIdempotencyKey(key string) *TemplatedMailBuilder {
	b.mail.idempotencyKey = key
	return b
}

func (b *TemplatedMailBuilder) Build() (TemplatedMail, error) {
	if len(b.mail.template) < ValidMinTemplateLength || len(b.mail.template) > ValidMaxTemplateLength {
		return TemplatedMail{}, &ClientError{
			Message: fmt.Sprintf("template must be between %d and %d characters", ValidMinTemplateLength, ValidMaxTemplateLength),
		}
	}

	if err := validateAddress("recipient", b.mail.recipient); err != nil {
		return TemplatedMail{}, err
	}

	if err := validateAddress("sender", b.mail.sender); err != nil {
		return TemplatedMail{}, err
	}

	// lang is optional, validated only when set
	if b.mail.lang != "" {
		if len(b.mail.lang) < ValidMinLangLength || len(b.mail.lang) > ValidMaxLangLength {
			return TemplatedMail{}, &ClientError{
				Message: fmt.Sprintf("lang must be between %d and %d characters", ValidMinLangLength, ValidMaxLangLength),
			}
		}
	}

	return b.mail, nil
}

func validateAddress(field, address string) error {
	if len(address) < ValidMinAddressLength || len(address) > ValidMaxAddressLength {
		return &ClientError{
			Message: fmt.Sprintf("%s must be between %d and %d characters", field, ValidMinAddressLength, ValidMaxAddressLength),
		}
	}
	return nil
}
