// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inproc

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Data Security
// =============================================================================

// Security implements capability.DataSecurity with AES-256-GCM under a
// per-instance random key.
//
// # Limitations
//
//   - The key lives only in process memory; payloads do not survive a
//     restart. Production deployments back this capability with a KMS.
type Security struct {
	component

	aead cipher.AEAD
}

// NewSecurity creates a security component with a fresh random key.
func NewSecurity() (*Security, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate data key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init GCM: %w", err)
	}

	return &Security{
		component: component{name: capability.NameSecurity},
		aead:      aead,
	}, nil
}

// EncryptUserData seals the JSON encoding of data, prefixing the nonce.
func (s *Security) EncryptUserData(_ context.Context, data datatypes.RawUserData) (datatypes.EncryptedPayload, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode user data: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return datatypes.EncryptedPayload(sealed), nil
}

// DecryptUserData opens a payload sealed by this instance.
func (s *Security) DecryptUserData(_ context.Context, payload datatypes.EncryptedPayload) (datatypes.RawUserData, error) {
	if len(payload) < s.aead.NonceSize() {
		return nil, errors.New("payload shorter than nonce")
	}

	nonce, ciphertext := payload[:s.aead.NonceSize()], payload[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}

	var data datatypes.RawUserData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("decode user data: %w", err)
	}
	return data, nil
}

var _ capability.DataSecurity = (*Security)(nil)
