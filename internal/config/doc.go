// Package config 加载 Atlas 的启动配置。配置文件为 YAML（JSON 同样可以解析），
// 未填写的字段由 applyDefaults 补齐，部分连接信息可以通过 ATLAS_* 环境变量覆盖。
package config
