// Copyright 2026 ImageFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 ImageFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试与基准测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。所有测试应优先使用此包
中的工具函数和 Mock 实现。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertNoError / AssertError /
    AssertContains / AssertNotContains 等
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual，
    支持超时轮询等待条件满足
  - 数据工具: MustJSON / MustParseJSON / MultipartImage，
    简化测试数据与上传请求体构造
  - 基准辅助: BenchmarkHelper 封装 testing.B 常用操作

# 子包

  - testutil/mocks: Mock 实现，包括 MockProvider（图像编辑提供者），
    支持 Builder 模式、错误注入、延迟注入与调用记录
  - testutil/fixtures: 测试数据工厂，提供极小但格式合法的
    PNG / JPEG 字节样例及其 base64 / data URI 形式

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider()
	result, err := provider.Edit(ctx, &editor.EditRequest{
		ImageData:   fixtures.PNGBase64(),
		MediaType:   "image/png",
		Instruction: "remove the background",
	})
	testutil.AssertNoError(t, err)
*/
package testutil
