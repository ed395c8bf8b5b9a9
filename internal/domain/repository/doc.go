// Package repository define el modelo de dominio persistido (tenant, schema,
// usuario) y los contratos de acceso a datos que implementan los adapters de
// internal/store.
//
// Los adapters traducen sus errores nativos a los sentinels de este paquete
// (ErrNotFound, ErrConflict, ErrExpired, ErrTransient) y nunca exponen tipos
// del driver hacia arriba.
package repository
