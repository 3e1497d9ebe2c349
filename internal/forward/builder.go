package forward

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Secret store names the Forward API resolves.
const (
	SecretEncryptionAPIKey    = "visa_encryption_api_key"
	SecretEncryptionSharedKey = "visa_encryption_shared_key"
	SecretAPIKey              = "visa_api_key"
	SecretSharedKey           = "visa_shared_key"
)

var ErrDuplicateVariable = errors.New("duplicate variable name")

type Variables []Variable

// Validate reports an empty or repeated name; the Forward API could not
// resolve such a reference unambiguously.
func (vs Variables) Validate() error {
	seen := make(map[string]bool, len(vs))
	for i, v := range vs {
		if v.Name == "" {
			return fmt.Errorf("variables[%d]: empty name", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateVariable, v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// Lookup returns the value of the named variable.
func (vs Variables) Lookup(name string) (string, bool) {
	for _, v := range vs {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// NewPaymentInstrument returns the card payload with every field templated.
func NewPaymentInstrument() PaymentInstrument {
	return PaymentInstrument{
		AccountNumber: Field("card_number"),
		CVV2:          Field("card_cvv"),
		Name:          Field("cardholder_name"),
		ExpirationDate: ExpirationDate{
			Month: Field("card_expiry_month"),
			Year:  Field("card_expiry_year_yyyy"),
		},
		BillingAddress: BillingAddress{
			Line1:      Field("billing_address_line1"),
			Line2:      Field("billing_address_line2"),
			City:       Field("billing_address_city"),
			State:      Field("billing_address_state"),
			Country:    Field("billing_address_country"),
			PostalCode: Field("billing_address_zip"),
		},
	}
}

func NewJWEHeaders(now time.Time) JWEHeaders {
	return JWEHeaders{
		KID:                    Secret(SecretEncryptionAPIKey),
		ChannelSecurityContext: ChannelSharedSecret,
		IAT:                    strconv.FormatInt(now.Unix(), 10),
	}
}

func NewEncryptionKey() EncryptionKey {
	return EncryptionKey{KTY: KeyTypeOctet, K: Secret(SecretEncryptionSharedKey)}
}

// BuildVariables serializes the payment instrument, JWE headers and
// encryption key into the variables consumed by the jwe_encrypt expression.
// now is the only input that changes the output.
func BuildVariables(now time.Time) (Variables, error) {
	items := []struct {
		name string
		v    any
	}{
		{VarPaymentInstrument, NewPaymentInstrument()},
		{VarJWEHeaders, NewJWEHeaders(now)},
		{VarEncryptionKey, NewEncryptionKey()},
	}
	out := make(Variables, 0, len(items))
	for _, it := range items {
		s, err := marshalString(it.v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", it.name, err)
		}
		out = append(out, Variable{Name: it.name, Value: s})
	}
	return out, nil
}

// EncryptedPaymentInstrument is the placeholder the Forward API replaces
// with the JWE of the payment_instrument variable.
func EncryptedPaymentInstrument() string {
	return JWEEncrypt(VarPaymentInstrument, VarEncryptionKey, AlgA256GCMKW, EncA256GCM, VarJWEHeaders)
}

// ---- envelope ----

// Envelope holds the account and routing values of one provisioning call.
type Envelope struct {
	SourceID            string
	ProcessingChannelID string

	DestinationURL string
	Method         string
	RequestID      string
	RelationshipID string
	Async          bool

	ClientWalletAccountID               string
	ClientAppID                         string
	ClientWalletAccountEmailAddress     string
	ClientWalletAccountEmailAddressHash string
	Locale                              string
}

type Builder struct {
	cfg   Envelope
	now   func() time.Time
	newID func() string
}

type Option func(*Builder)

// WithClock replaces time.Now for the iat header.
func WithClock(now func() time.Time) Option { return func(b *Builder) { b.now = now } }

// WithRequestIDs supplies x-request-id values when Envelope.RequestID is empty.
func WithRequestIDs(gen func() string) Option { return func(b *Builder) { b.newID = gen } }

func NewBuilder(cfg Envelope, opts ...Option) *Builder {
	b := &Builder{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Builder) ProvisioningRequest() ProvisioningRequest {
	locale := b.cfg.Locale
	if locale == "" {
		locale = "en_US"
	}
	return ProvisioningRequest{
		AccountType:                         AccountTypeCredit,
		PANSource:                           PANSourceOnFile,
		Locale:                              locale,
		PresentationType:                    []string{PresentationCloudHCE},
		ClientWalletAccountID:               b.cfg.ClientWalletAccountID,
		EncPaymentInstrument:                EncryptedPaymentInstrument(),
		ClientAppID:                         b.cfg.ClientAppID,
		ConsumerEntryMode:                   EntryModeManual,
		ClientWalletAccountEmailAddress:     b.cfg.ClientWalletAccountEmailAddress,
		ClientWalletAccountEmailAddressHash: b.cfg.ClientWalletAccountEmailAddressHash,
		ProtectionType:                      ProtectionSoftware,
	}
}

// Build assembles the forward envelope.
func (b *Builder) Build() (*Request, error) {
	if b.cfg.DestinationURL == "" {
		return nil, errors.New("destination url must not be empty")
	}
	vars, err := BuildVariables(b.now())
	if err != nil {
		return nil, err
	}
	if err := vars.Validate(); err != nil {
		return nil, err
	}
	body, err := marshalString(b.ProvisioningRequest())
	if err != nil {
		return nil, fmt.Errorf("encode provisioning request: %w", err)
	}

	method := strings.ToUpper(b.cfg.Method)
	if method == "" {
		method = http.MethodPost
	}
	reqID := b.cfg.RequestID
	if reqID == "" && b.newID != nil {
		reqID = b.newID()
	}
	headers := map[string]string{}
	if reqID != "" {
		headers["x-request-id"] = reqID
	}

	return &Request{
		Source:              Source{Type: SourceTypeID, ID: b.cfg.SourceID},
		ProcessingChannelID: b.cfg.ProcessingChannelID,
		DestinationRequest: DestinationRequest{
			URL:     b.cfg.DestinationURL,
			Method:  method,
			Headers: Headers{Raw: headers},
			Body:    body,
			Query: []NameValue{
				{Name: "relationshipID", Value: b.cfg.RelationshipID},
				{Name: "async", Value: strconv.FormatBool(b.cfg.Async)},
				{Name: "apikey", Value: Secret(SecretAPIKey)},
			},
			Variables: vars,
			Signature: Signature{
				Type:           SignatureTypeVisa,
				VisaParameters: &VisaParameters{SharedSecret: Secret(SecretSharedKey)},
			},
		},
	}, nil
}

// Marshal encodes v without HTML escaping and without a trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func marshalString(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
