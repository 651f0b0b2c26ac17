// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 ImageFlow 服务端程序入口。

# 概述

cmd/imageflow 是 ImageFlow 服务的可执行入口，提供会话式 AI 图像编辑的
HTTP API、健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、
结构化日志（zap）、Prometheus 指标采集以及配置热重载。

# 核心类型

  - Server           — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    MetricsMiddleware、OTelTracing、CORS、RateLimiter（基于 IP）、
    APIKeyAuth（X-API-Key，媒体令牌端点豁免）
  - 会话存储：memory 或 redis（internal/cache）
  - 编辑历史：gorm 落库（postgres / mysql / sqlite），后台按保留时长清理
  - 配置热重载：HotReloadManager 监听文件变更，编辑提供者热切换
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 停止后台任务 → 关闭 HTTP → 关闭 Metrics →
    关闭存储与数据库 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
