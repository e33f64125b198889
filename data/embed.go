package data

import (
	_ "embed"
)

//go:embed workflows/builtin.yaml
var BuiltinWorkflows []byte

//go:embed initdb/mariadb/001-privileges.sql
var InitdbMariaDBPrivileges string
