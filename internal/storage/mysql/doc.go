// Package mysql 把完成的支持工单持久化到 MySQL，供运营查询与回溯。
// 包内负责连接池、内嵌迁移与错误码映射，对外只暴露 TicketRepository。
package mysql
