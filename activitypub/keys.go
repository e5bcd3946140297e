package activitypub

import (
	stdcrypto "crypto"
	"errors"

	"github.com/nettle-social/nettle/internal/crypto"
	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/nettle-social/nettle/models"
	"gorm.io/gorm"
)

// KeyPair is a deserialised keypair for a local actor.
type KeyPair struct {
	Type       crypto.KeyType
	PrivateKey stdcrypto.PrivateKey
	PublicKey  stdcrypto.PublicKey
}

// KeyPairs returns the keypairs for the given local identifier, in
// fixed order with the HTTP signature key first. For each supported
// algorithm an existing stored pair is deserialised, or a fresh pair is
// generated and persisted, so at most one row is inserted per missing
// algorithm per call. An unknown identifier yields an empty slice, not
// an error; callers must treat that as "actor has no key material".
func KeyPairs(env *Env, identifier string) ([]*KeyPair, error) {
	user, err := models.NewUsers(env.DB).FindByUsername(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	stored := make(map[string]*models.Key, len(user.Keys))
	for i := range user.Keys {
		stored[user.Keys[i].Type] = &user.Keys[i]
	}

	var pairs []*KeyPair
	for _, typ := range crypto.KeyTypes {
		row, ok := stored[string(typ)]
		if !ok {
			env.Log.Debug("generating missing keypair", "identifier", identifier, "type", typ)
			keypair, err := crypto.GenerateKeypair(typ)
			if err != nil {
				return nil, err
			}
			row = &models.Key{
				ID:         snowflake.Now(),
				UserID:     user.ID,
				Type:       string(typ),
				PrivateKey: keypair.PrivateKey,
				PublicKey:  keypair.PublicKey,
			}
			if err := env.DB.Create(row).Error; err != nil {
				return nil, err
			}
		}
		priv, err := crypto.ParsePrivateKey(row.PrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err := crypto.ParsePublicKey(row.PublicKey)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, &KeyPair{
			Type:       typ,
			PrivateKey: priv,
			PublicKey:  pub,
		})
	}
	return pairs, nil
}
