package domain

type PIIKind string

const (
	PIIEmail        PIIKind = "email"
	PIIPhone        PIIKind = "phone"
	PIILicensePlate PIIKind = "license_plate"
	PIIVIN          PIIKind = "vin"
	PIIDate         PIIKind = "date"
	PIIPersonName   PIIKind = "person_name"
)

// PIIMatch describes one detected span of personally identifiable information
// in a raw text. Offsets refer to the original string. Pseudonym is a stable
// one-way digest of OriginalValue so records can be correlated without
// recovering the original.
type PIIMatch struct {
	Kind             PIIKind `json:"kind"`
	Start            int     `json:"start"`
	End              int     `json:"end"`
	OriginalValue    string  `json:"original_value,omitempty"`
	ReplacementToken string  `json:"replacement_token"`
	Pseudonym        string  `json:"pseudonym"`
}
