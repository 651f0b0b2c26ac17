// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 ImageFlow 服务的全局共享类型定义。

# 概述

types 是服务最底层的公共包，不依赖任何内部包，为 imaging、editor、
session、api 等上层模块提供统一的类型契约。所有跨包共享的错误码与
上下文工具均定义于此，以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记
  - 错误工具链：NewError / WithCause / WithHTTPStatus / IsRetryable / GetErrorCode
  - Context 传播：WithTraceID / WithRequestID / WithSessionID
*/
package types
