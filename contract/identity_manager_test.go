package contract

import (
	"encoding/json"
	"testing"
	"time"

	"accessregistry/model"

	"github.com/stretchr/testify/suite"
)

type IdentitySuite struct {
	suite.Suite
	h        *ledgerHarness
	contract *AccessRegistryContract

	owner    string
	alice    string
	bob      string
	verifier string
}

func TestIdentitySuite(t *testing.T) {
	suite.Run(t, new(IdentitySuite))
}

func (s *IdentitySuite) SetupTest() {
	s.h = newLedgerHarness()
	s.contract = new(AccessRegistryContract)
	s.owner = principalFor("owner")
	s.alice = principalFor("alice")
	s.bob = principalFor("bob")
	s.verifier = principalFor("verifier")
	s.Require().NoError(s.contract.InitLedger(s.h.as(s.owner)))
}

func (s *IdentitySuite) register(principal, name, email string) {
	s.Require().NoError(s.contract.RegisterIdentity(s.h.as(principal), name, email))
}

func (s *IdentitySuite) stats() *model.RegistryStats {
	stats, err := s.contract.GetRegistryStats(s.h.as(s.owner))
	s.Require().NoError(err)
	return stats
}

// TestInitLedger verifies the owner is recorded exactly once.
func (s *IdentitySuite) TestInitLedger() {
	s.Run("records caller as owner", func() {
		owner, err := s.contract.GetOwner(s.h.as(s.alice))
		s.Require().NoError(err)
		s.Equal(s.owner, owner)
	})

	s.Run("rejects second initialization", func() {
		err := s.contract.InitLedger(s.h.as(s.alice))
		s.Require().ErrorIs(err, ErrAlreadyInitialized)

		owner, err := s.contract.GetOwner(s.h.as(s.alice))
		s.Require().NoError(err)
		s.Equal(s.owner, owner)
	})

	s.Run("GetOwner on fresh ledger reports not initialized", func() {
		fresh := newLedgerHarness()
		_, err := s.contract.GetOwner(fresh.as(s.alice))
		s.Require().ErrorIs(err, ErrNotInitialized)
	})
}

// TestRegisterIdentity verifies record creation, counters and the emitted event.
func (s *IdentitySuite) TestRegisterIdentity() {
	ctx := s.h.as(s.alice)
	s.Require().NoError(s.contract.RegisterIdentity(ctx, "Alice", "a@x.com"))

	events := s.h.drainEvents()
	s.Require().Len(events, 1)
	s.Equal(model.EventIdentityRegistered, events[0].Name)
	var payload model.IdentityRegisteredEvent
	s.Require().NoError(decodeEvent(events[0], &payload))
	s.Equal(s.alice, payload.Principal)
	s.Equal("Alice", payload.Name)
	s.Equal(formatEventTime(s.h.now), payload.Timestamp)

	stored, err := NewIdentityManager(s.h.as(s.owner)).GetIdentity(s.alice)
	s.Require().NoError(err)
	s.Require().True(stored.Exists())
	s.Equal("Alice", stored.Name)
	s.Equal("a@x.com", stored.Email)
	s.False(stored.IsVerified)
	s.True(stored.IsActive)
	s.True(stored.RegistrationTime.Equal(s.h.now))
	s.Equal(computeIdentityHash("Alice", "a@x.com", s.alice, s.h.now), stored.IdentityHash)

	s.Equal(uint64(1), s.stats().TotalUsers)
}

// TestRegisterIdentityRejections verifies failures leave no trace.
func (s *IdentitySuite) TestRegisterIdentityRejections() {
	s.Run("empty name", func() {
		err := s.contract.RegisterIdentity(s.h.as(s.alice), "", "a@x.com")
		s.Require().ErrorIs(err, ErrEmptyField)
		s.Contains(err.Error(), "name")
		s.Empty(s.h.drainEvents())
	})

	s.Run("empty email", func() {
		err := s.contract.RegisterIdentity(s.h.as(s.alice), "Alice", "")
		s.Require().ErrorIs(err, ErrEmptyField)
		s.Contains(err.Error(), "email")
		s.Empty(s.h.drainEvents())
	})

	s.Run("nothing stored after failures", func() {
		info, err := s.contract.GetIdentityInfo(s.h.as(s.owner), s.alice)
		s.Require().NoError(err)
		s.Equal(model.IdentityView{}, info)
		s.Equal(uint64(0), s.stats().TotalUsers)
	})

	s.Run("second registration fails regardless of arguments", func() {
		s.register(s.alice, "Alice", "a@x.com")
		firstHash := s.identity(s.alice).IdentityHash

		for _, args := range [][2]string{{"Alice", "a@x.com"}, {"Other", "o@y.org"}} {
			s.h.advance(time.Minute)
			err := s.contract.RegisterIdentity(s.h.as(s.alice), args[0], args[1])
			s.Require().ErrorIs(err, ErrAlreadyRegistered)
			s.Empty(s.h.drainEvents())
		}
		s.Equal(firstHash, s.identity(s.alice).IdentityHash)
		s.Equal("Alice", s.identity(s.alice).Name)
		s.Equal(uint64(1), s.stats().TotalUsers)
	})
}

func (s *IdentitySuite) identity(principal string) *model.Identity {
	identity, err := NewIdentityManager(s.h.as(s.owner)).GetIdentity(principal)
	s.Require().NoError(err)
	return identity
}

// TestGetIdentityInfo verifies the public view withholds plaintext fields.
func (s *IdentitySuite) TestGetIdentityInfo() {
	s.register(s.alice, "Alice", "a@x.com")

	info, err := s.contract.GetIdentityInfo(s.h.as(s.bob), s.alice)
	s.Require().NoError(err)
	s.False(info.IsVerified)
	s.True(info.IsActive)
	s.True(info.RegistrationTime.Equal(s.h.now))
	s.Regexp(`^0x[0-9a-f]{64}$`, info.IdentityHash)

	raw, err := json.Marshal(info)
	s.Require().NoError(err)
	s.NotContains(string(raw), "Alice")
	s.NotContains(string(raw), "a@x.com")
}

// TestVerifyIdentity verifies the authorization and state checks of verification.
func (s *IdentitySuite) TestVerifyIdentity() {
	s.register(s.alice, "Alice", "a@x.com")

	s.Run("non-verifier is unauthorized", func() {
		err := s.contract.VerifyIdentity(s.h.as(s.bob), s.alice)
		s.Require().ErrorIs(err, ErrUnauthorized)
		s.False(s.identity(s.alice).IsVerified)
	})

	s.Run("invalid target", func() {
		err := s.contract.VerifyIdentity(s.h.as(s.owner), "")
		s.Require().ErrorIs(err, ErrInvalidAddress)
		err = s.contract.VerifyIdentity(s.h.as(s.owner), "not-a-certificate-id")
		s.Require().ErrorIs(err, ErrInvalidAddress)
	})

	s.Run("unregistered target", func() {
		err := s.contract.VerifyIdentity(s.h.as(s.owner), s.bob)
		s.Require().ErrorIs(err, ErrNotRegistered)
	})

	s.Run("owner verifies", func() {
		s.Require().NoError(s.contract.VerifyIdentity(s.h.as(s.owner), s.alice))
		events := s.h.drainEvents()
		s.Require().Len(events, 1)
		s.Equal(model.EventIdentityVerified, events[0].Name)
		var payload model.IdentityVerifiedEvent
		s.Require().NoError(decodeEvent(events[0], &payload))
		s.Equal(s.alice, payload.Principal)
		s.Equal(s.owner, payload.Verifier)
		s.True(s.identity(s.alice).IsVerified)
	})

	s.Run("already verified", func() {
		err := s.contract.VerifyIdentity(s.h.as(s.owner), s.alice)
		s.Require().ErrorIs(err, ErrAlreadyVerified)
		s.Empty(s.h.drainEvents())
		s.True(s.identity(s.alice).IsVerified)
	})
}

// TestVerifierRole verifies owner-managed verifier flags.
func (s *IdentitySuite) TestVerifierRole() {
	s.register(s.bob, "Bob", "b@x.com")

	s.Run("owner is implicitly a verifier", func() {
		ok, err := s.contract.IsVerifier(s.h.as(s.alice), s.owner)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("only owner may set verifiers", func() {
		err := s.contract.SetVerifier(s.h.as(s.alice), s.verifier, true)
		s.Require().ErrorIs(err, ErrUnauthorized)
		ok, err := s.contract.IsVerifier(s.h.as(s.alice), s.verifier)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("invalid principal", func() {
		err := s.contract.SetVerifier(s.h.as(s.owner), "   ", true)
		s.Require().ErrorIs(err, ErrInvalidAddress)
	})

	s.Run("granted verifier can verify", func() {
		s.Require().NoError(s.contract.SetVerifier(s.h.as(s.owner), s.verifier, true))
		events := s.h.drainEvents()
		s.Require().Len(events, 1)
		s.Equal(model.EventVerifierUpdated, events[0].Name)

		s.Require().NoError(s.contract.VerifyIdentity(s.h.as(s.verifier), s.bob))
		s.True(s.identity(s.bob).IsVerified)
	})

	s.Run("cleared verifier loses authority", func() {
		s.register(s.alice, "Alice", "a@x.com")
		s.Require().NoError(s.contract.SetVerifier(s.h.as(s.owner), s.verifier, false))
		err := s.contract.VerifyIdentity(s.h.as(s.verifier), s.alice)
		s.Require().ErrorIs(err, ErrUnauthorized)
	})

	s.Run("verification survives verifier removal", func() {
		s.True(s.identity(s.bob).IsVerified)
	})
}
