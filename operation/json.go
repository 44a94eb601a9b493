package operation

import (
	"encoding/json"
	"fmt"
)

// wireOperation mirrors the external JSON schema documented in the
// kernel's external-interfaces contract: source/nonce/content, content
// tagged by its variant name.
type wireOperation struct {
	Source  string          `json:"source"`
	Nonce   uint64          `json:"nonce"`
	Content json.RawMessage `json:"content"`
}

type wireSigned struct {
	PublicKey string          `json:"public_key"`
	Signature string          `json:"signature"`
	Inner     json.RawMessage `json:"inner"`
}

type wireDeployFunction struct {
	FunctionCode  []byte `json:"function_code"`
	AccountCredit uint64 `json:"account_credit"`
}

type wireRunFunction struct {
	URI      string              `json:"uri"`
	Method   string              `json:"method"`
	Headers  map[string][]string `json:"headers"`
	Body     []byte              `json:"body"`
	GasLimit uint64              `json:"gas_limit"`
}

type wireWithdraw struct {
	Amount   uint64 `json:"amount"`
	Receiver string `json:"receiver"`
}

// MarshalJSON encodes Content as a single-key object keyed by the
// active variant's name, matching the wire schema documented for
// external operations.
func (c Content) MarshalJSON() ([]byte, error) {
	switch {
	case c.DeployFunction != nil:
		return json.Marshal(map[string]wireDeployFunction{
			"DeployFunction": {
				FunctionCode:  c.DeployFunction.FunctionCode,
				AccountCredit: c.DeployFunction.AccountCredit,
			},
		})
	case c.RunFunction != nil:
		return json.Marshal(map[string]wireRunFunction{
			"RunFunction": {
				URI:      c.RunFunction.URI,
				Method:   c.RunFunction.Method,
				Headers:  c.RunFunction.Headers,
				Body:     c.RunFunction.Body,
				GasLimit: c.RunFunction.GasLimit,
			},
		})
	case c.Withdraw != nil:
		return json.Marshal(map[string]wireWithdraw{
			"Withdraw": {
				Amount:   c.Withdraw.Amount,
				Receiver: c.Withdraw.Receiver.String(),
			},
		})
	default:
		return nil, fmt.Errorf("operation: empty content has no wire encoding")
	}
}

// UnmarshalJSON decodes a single-key tagged object into whichever
// Content variant the key names.
func (c *Content) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("operation: decoding content: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("operation: content must have exactly one variant, got %d", len(tagged))
	}
	for kind, raw := range tagged {
		switch kind {
		case "DeployFunction":
			var d wireDeployFunction
			if err := json.Unmarshal(raw, &d); err != nil {
				return fmt.Errorf("operation: decoding DeployFunction: %w", err)
			}
			c.DeployFunction = &DeployFunction{FunctionCode: d.FunctionCode, AccountCredit: d.AccountCredit}
		case "RunFunction":
			var r wireRunFunction
			if err := json.Unmarshal(raw, &r); err != nil {
				return fmt.Errorf("operation: decoding RunFunction: %w", err)
			}
			c.RunFunction = &RunFunction{
				URI: r.URI, Method: r.Method, Headers: r.Headers, Body: r.Body, GasLimit: r.GasLimit,
			}
		case "Withdraw":
			var w wireWithdraw
			if err := json.Unmarshal(raw, &w); err != nil {
				return fmt.Errorf("operation: decoding Withdraw: %w", err)
			}
			receiver, err := parseAddress(w.Receiver)
			if err != nil {
				return err
			}
			c.Withdraw = &Withdraw{Amount: w.Amount, Receiver: receiver}
		default:
			return fmt.Errorf("operation: unknown content variant %q", kind)
		}
	}
	return nil
}

func (op Operation) MarshalJSON() ([]byte, error) {
	content, err := op.Content.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Source  string          `json:"source"`
		Nonce   uint64          `json:"nonce"`
		Content json.RawMessage `json:"content"`
	}{
		Source:  op.Source.String(),
		Nonce:   op.Nonce,
		Content: content,
	})
}

func (op *Operation) UnmarshalJSON(data []byte) error {
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("operation: decoding operation: %w", err)
	}
	source, err := parseAddress(w.Source)
	if err != nil {
		return err
	}
	var content Content
	if err := json.Unmarshal(w.Content, &content); err != nil {
		return err
	}
	op.Source = source
	op.Nonce = w.Nonce
	op.Content = content
	return nil
}

func (s SignedOperation) MarshalJSON() ([]byte, error) {
	inner, err := s.Inner.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		PublicKey string          `json:"public_key"`
		Signature string          `json:"signature"`
		Inner     json.RawMessage `json:"inner"`
	}{
		PublicKey: s.PublicKey.String(),
		Signature: s.Signature.String(),
		Inner:     inner,
	})
}

func (s *SignedOperation) UnmarshalJSON(data []byte) error {
	var w wireSigned
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("operation: decoding signed operation: %w", err)
	}
	pk, err := parseKey(w.PublicKey)
	if err != nil {
		return err
	}
	sig, err := parseSignature(w.Signature)
	if err != nil {
		return err
	}
	var inner Operation
	if err := json.Unmarshal(w.Inner, &inner); err != nil {
		return err
	}
	s.PublicKey = pk
	s.Signature = sig
	s.Inner = inner
	return nil
}
