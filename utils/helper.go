package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "BR"

// OnlyDigits strips everything but ASCII digits. CPF/CNPJ and phone fields are
// stored formatted in the application but the ERP only accepts bare digits.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}

// EntityLockTTL must outlive the longest sync task budget (2 minutes), so a
// slow task never loses its lease mid-flight to a concurrent duplicate.
const EntityLockTTL = 3 * time.Minute

// EntityLock obtains a redis lease keyed by entity kind+id so that two
// concurrent sync tasks for the same patient/order cannot interleave. The
// returned release func must be called when the sync finishes. When the lock
// client is not initialized (unit tests, the foreground importer) the lease
// degrades to a no-op with a warning instead of failing the job.
func EntityLock(ctx context.Context, kind string, id int, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	lockKey := fmt.Sprintf("tiny-sync:%s:%d", kind, id)
	if locker == nil {
		logger.Warnf("redis lock not initialized; proceeding without lease for %s", lockKey)
		return func() {}, nil
	}

	lock, err := locker.Obtain(ctx, lockKey, EntityLockTTL, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain entity lock", lockKey, err)
		return nil, errors.New("could not obtain lock for " + lockKey)
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining entity lock", lockKey, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}

func DereferencePtr[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}
