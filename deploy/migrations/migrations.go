// Package migrations 内嵌工单库的 SQL 迁移文件，文件名以版本号开头。
package migrations

import "embed"

// Files 暴露所有 SQL 迁移文件。
//
//go:embed *.sql
var Files embed.FS
