// Package redis 提供基于 Redis 的汇率存储。上游行情服务把中间价写入一个
// 哈希，Atlas 周期性读取并整体替换进程内的报价表。
package redis
