// Package repository define las interfaces de repositorio de dominio.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (PostgreSQL, memoria, etc.).
//
// Las implementaciones concretas viven en internal/store/.
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - "no encontrado" se señala con ErrNotFound, nunca con (nil, nil)
//   - Las mutaciones condicionales (revocar-si-activo, incrementar-intentos)
//     son atómicas a nivel de driver; los services dependen de eso
//   - Errores de dominio están en errors.go
package repository
