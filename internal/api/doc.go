// Package api 通过 REST 接口暴露 Atlas 对话：创建会话、发送消息、查看会话诊断、
// 查询最近工单，以及健康检查与 Prometheus 指标。
package api
