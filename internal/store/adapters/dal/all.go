// Package dal enlaza todos los adapters de store vía sus init().
package dal

import (
	_ "github.com/dropDatabas3/tenantauth/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/tenantauth/internal/store/adapters/pg"
)
