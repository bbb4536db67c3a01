package waproto

// VerifiedNameCertificate is the business identity attached to a stanza in its verified_name child.
type VerifiedNameCertificate struct {
	Details         []byte
	Signature       []byte
	ServerSignature []byte
}

type VerifiedNameDetails struct {
	Serial       uint64
	Issuer       string
	VerifiedName string
	IssueTime    uint64
}

func UnmarshalCertificate(b []byte) (*VerifiedNameCertificate, error) {
	c := &VerifiedNameCertificate{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.bytesTo(&c.Details)
		case 2:
			return f.bytesTo(&c.Signature)
		case 3:
			return f.bytesTo(&c.ServerSignature)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func MarshalCertificate(c *VerifiedNameCertificate) []byte {
	var e encoder
	e.bytes(1, c.Details)
	e.bytes(2, c.Signature)
	e.bytes(3, c.ServerSignature)
	return e
}

func UnmarshalDetails(b []byte) (*VerifiedNameDetails, error) {
	d := &VerifiedNameDetails{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			return f.uint64(&d.Serial)
		case 2:
			return f.string(&d.Issuer)
		case 4:
			return f.string(&d.VerifiedName)
		case 10:
			return f.uint64(&d.IssueTime)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func MarshalDetails(d *VerifiedNameDetails) []byte {
	var e encoder
	e.uint64(1, d.Serial)
	e.string(2, d.Issuer)
	e.string(4, d.VerifiedName)
	e.uint64(10, d.IssueTime)
	return e
}

// VerifiedName decodes a certificate and returns the business name its details carry.
func VerifiedName(cert []byte) (string, error) {
	c, err := UnmarshalCertificate(cert)
	if err != nil {
		return "", err
	}
	if len(c.Details) == 0 {
		return "", newDecodeError("certificate without details")
	}
	d, err := UnmarshalDetails(c.Details)
	if err != nil {
		return "", err
	}
	return d.VerifiedName, nil
}
