package forward

// Variable names referenced by the encryption placeholder.
const (
	VarPaymentInstrument = "payment_instrument"
	VarJWEHeaders        = "jwe_headers"
	VarEncryptionKey     = "encryption_key"
)

// Fixed values of the provisioning request and envelope.
const (
	SourceTypeID         = "id"
	SignatureTypeVisa    = "visa"
	ChannelSharedSecret  = "SHARED_SECRET"
	KeyTypeOctet         = "oct"
	AlgA256GCMKW         = "A256GCMKW"
	EncA256GCM           = "A256GCM"
	AccountTypeCredit    = "CREDIT"
	PANSourceOnFile      = "ON_FILE"
	PresentationCloudHCE = "CLOUD_HCE"
	EntryModeManual      = "MANUAL"
	ProtectionSoftware   = "SOFTWARE"
)

// Request is the envelope POSTed to the Forward API.
type Request struct {
	Source              Source             `json:"source"`
	ProcessingChannelID string             `json:"processing_channel_id"`
	DestinationRequest  DestinationRequest `json:"destination_request"`
}

type Source struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// DestinationRequest describes the call the Forward API makes on our behalf.
type DestinationRequest struct {
	URL       string      `json:"url"`
	Method    string      `json:"method"`
	Headers   Headers     `json:"headers"`
	Body      string      `json:"body"`
	Query     []NameValue `json:"query"`
	Variables Variables   `json:"variables"`
	Signature Signature   `json:"signature"`
}

type Headers struct {
	Raw map[string]string `json:"raw"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variable is a named value the Forward API substitutes into templates.
type Variable = NameValue

type Signature struct {
	Type           string          `json:"type"`
	VisaParameters *VisaParameters `json:"visa_parameters,omitempty"`
}

type VisaParameters struct {
	SharedSecret string `json:"shared_secret"`
}

// ---- payload ----

type PaymentInstrument struct {
	AccountNumber  string         `json:"accountNumber"`
	CVV2           string         `json:"cvv2"`
	Name           string         `json:"name"`
	ExpirationDate ExpirationDate `json:"expirationDate"`
	BillingAddress BillingAddress `json:"billingAddress"`
}

type ExpirationDate struct {
	Month string `json:"month"`
	Year  string `json:"year"`
}

type BillingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

type JWEHeaders struct {
	KID                    string `json:"kid"`
	ChannelSecurityContext string `json:"channelSecurityContext"`
	IAT                    string `json:"iat"` // unix seconds, decimal string
}

type EncryptionKey struct {
	KTY string `json:"kty"`
	// K is base64url(sha256(shared key)); resolved by the forward service.
	K string `json:"k"`
}

// ProvisioningRequest is the body of the destination call.
type ProvisioningRequest struct {
	AccountType                         string   `json:"accountType"`
	PANSource                           string   `json:"panSource"`
	Locale                              string   `json:"locale"`
	PresentationType                    []string `json:"presentationType"`
	ClientWalletAccountID               string   `json:"clientWalletAccountID"`
	EncPaymentInstrument                string   `json:"encPaymentInstrument"`
	ClientAppID                         string   `json:"clientAppID"`
	ConsumerEntryMode                   string   `json:"consumerEntryMode"`
	ClientWalletAccountEmailAddress     string   `json:"clientWalletAccountEmailAddress"`
	ClientWalletAccountEmailAddressHash string   `json:"clientWalletAccountEmailAddressHash"`
	ProtectionType                      string   `json:"protectionType"`
}
