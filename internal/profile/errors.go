package profile

import "errors"

var (
	// ErrDuplicateOID is returned by Build when two records share an OID.
	ErrDuplicateOID = errors.New("profile: duplicate oid")

	// ErrProfileNotFound is returned by Store.Get for a device type that
	// has never been loaded.
	ErrProfileNotFound = errors.New("profile: device type not loaded")

	// ErrEmptyProfile is returned by Store.Load when given zero records; an
	// empty profile can never answer a GET-NEXT with anything but
	// end-of-MIB, which is almost always a walk-file mistake rather than
	// an intentional profile.
	ErrEmptyProfile = errors.New("profile: no records")
)
