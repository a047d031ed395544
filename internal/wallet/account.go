package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip32"
	"golang.org/x/crypto/sha3"
)

// account pairs a derived Ethereum address with its signing key.
type account struct {
	address common.Address
	key     *ecdsa.PrivateKey
}

// deriveAccount derives an Ethereum account from a BIP-39 seed.
// Derivation path: m/44'/60'/0'/0/{index}
func deriveAccount(seed []byte, index uint32) (*account, error) {
	key, err := deriveKey(seed, index)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	priv, pub := btcec.PrivKeyFromBytes(key[:32])
	pubBytes := pub.SerializeUncompressed()

	// Ethereum address = last 20 bytes of Keccak256(publicKey)
	hash := keccak256(pubBytes[1:]) // skip 0x04 prefix

	return &account{
		address: common.BytesToAddress(hash[12:]),
		key:     priv.ToECDSA(),
	}, nil
}

// deriveKey derives a child private key from a BIP-39 seed using BIP-32/BIP-44.
// Path: m/44'/60'/0'/0/{index}
func deriveKey(seed []byte, index uint32) ([]byte, error) {
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}

	// m/44'
	purpose, err := masterKey.NewChildKey(bip32.FirstHardenedChild + 44)
	if err != nil {
		return nil, fmt.Errorf("derive purpose: %w", err)
	}

	// m/44'/60'
	coin, err := purpose.NewChildKey(bip32.FirstHardenedChild + 60)
	if err != nil {
		return nil, fmt.Errorf("derive coin: %w", err)
	}

	// m/44'/60'/0'
	acct, err := coin.NewChildKey(bip32.FirstHardenedChild + 0)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}

	// m/44'/60'/0'/0
	change, err := acct.NewChildKey(0)
	if err != nil {
		return nil, fmt.Errorf("derive change: %w", err)
	}

	// m/44'/60'/0'/0/{index}
	child, err := change.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child: %w", err)
	}

	return child.Key, nil
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
