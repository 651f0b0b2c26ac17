// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 ImageFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 ImageFlow 所有 HTTP 端点的请求处理逻辑，
包括会话生命周期、源图像上传、编辑提交、媒体分发、编辑历史
与健康检查，以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - SessionHandler   — 会话生命周期、图像选择、编辑提交与媒体端点
  - HistoryHandler   — 编辑历史查询（按时间或按会话）
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready, /version）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（Database、Redis 等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 媒体令牌校验：预览与下载端点验证短期 HS256 令牌后输出原始字节
  - 并发就绪检查：/ready 在共享时间预算内并发执行所有注册检查
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
