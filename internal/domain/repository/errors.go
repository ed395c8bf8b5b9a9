package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica violación de unicidad (email/phone por tenant, slug).
	ErrConflict = errors.New("conflict")

	// ErrExpired indica que el token/código existe pero venció. No se consume.
	ErrExpired = errors.New("expired")

	// ErrTransient indica una falla de infraestructura reintentable (timeout, conexión).
	ErrTransient = errors.New("transient store failure")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsExpired verifica si el error es ErrExpired.
func IsExpired(err error) bool { return errors.Is(err, ErrExpired) }

// IsTransient verifica si el error es ErrTransient.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
