package fixed

import (
	"testing"
	"time"
)

func TestFromInfo(t *testing.T) {
	tests := []struct {
		name       string
		jsonStr    string
		wantErr    bool
		wantHash   string
		wantScheme string
	}{
		{
			name:    "chained scheme rejected",
			jsonStr: `{"public_key":"868f005eb8e6e4ca0a47c8a77ceaa5309a47978a7c71bc5cce96366b5d7a569937c529eeda66c7293784a9402801af31","period":30,"genesis_time":1595431050,"hash":"8990e7a9aaed2ffed73dbd7092123d6f289930540d7651336225dc172e51b2c","scheme":"pedersen-bls-chained"}`,
			wantErr: true,
		},
		{
			name:       "quicknet unchained-g1",
			jsonStr:    `{"public_key":"83cf0f2896adee7eb8b5f01fcad3912212c437e0073e911fb90022d3e760183c8c4b450b6a0a6c3ac6a5776a2d1064510d1fec758c921cc22b0e17e63aaf4bcb5ed66304de9cf809bd274ca73bab4af5a6e9c76a4bc09e76eae8991ef5ece45a","period":3,"genesis_time":1692803367,"hash":"52db9ba70e0cc0f6eaf7803dd07447a1f5477735fd3f661792ba94600c84e971","scheme":"bls-unchained-g1-rfc9380"}`,
			wantHash:   "52db9ba70e0cc0f6eaf7803dd07447a1f5477735fd3f661792ba94600c84e971",
			wantScheme: "bls-unchained-g1-rfc9380",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromInfo(tt.jsonStr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FromInfo: expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("FromInfo: %v", err)
			}
			if got.ChainHash() != tt.wantHash {
				t.Errorf("ChainHash() = %q, want %q", got.ChainHash(), tt.wantHash)
			}
			if got.Scheme().Name != tt.wantScheme {
				t.Errorf("Scheme().Name = %q, want %q", got.Scheme().Name, tt.wantScheme)
			}
			if got.RoundNumber(time.Unix(got.genesis, 0)) != 1 {
				t.Errorf("RoundNumber(genesis) = %d, want 1", got.RoundNumber(time.Unix(got.genesis, 0)))
			}
		})
	}
}

func TestNetwork_RoundNumberAdvancesByPeriod(t *testing.T) {
	n, err := NewNetwork("", nil, nil, 3*time.Second, 1000, nil)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	if got := n.RoundNumber(time.Unix(1000, 0)); got != 1 {
		t.Errorf("round at genesis = %d, want 1", got)
	}
	if got := n.RoundNumber(time.Unix(1006, 0)); got != 3 {
		t.Errorf("round 6s later = %d, want 3", got)
	}
}

func TestNetwork_SignatureUsesFixedValue(t *testing.T) {
	sig := []byte{1, 2, 3}
	n, err := NewNetwork("chain", nil, nil, time.Second, 0, sig)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	got, err := n.Signature(999)
	if err != nil {
		t.Fatalf("Signature: %v", err)
	}
	if len(got) != len(sig) {
		t.Fatalf("signature length mismatch")
	}

	n.SetSignature(nil)
	if _, err := n.Signature(999); err == nil {
		t.Fatalf("expected error after clearing signature")
	}
}

func TestNetwork_SwitchChainHash(t *testing.T) {
	n, err := NewNetwork("a", nil, nil, time.Second, 0, nil)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	if err := n.SwitchChainHash("b"); err != nil {
		t.Fatalf("SwitchChainHash: %v", err)
	}
	if n.ChainHash() != "b" {
		t.Fatalf("ChainHash() = %q, want %q", n.ChainHash(), "b")
	}
}
