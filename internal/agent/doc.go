// Package agent 是 Atlas 的对话核心：把一条用户消息依次交给流程引擎、
// 上下文解析与回复生成，并根据情绪调整语气。
//
// Agent 本身不保存会话状态，调用方为每个对话持有一个 *dialogue.Session，
// 同一会话的消息必须串行处理。
package agent
