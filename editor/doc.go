// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 editor 提供统一的图像编辑客户端，屏蔽不同模型服务商在 API 协议、
参数格式和响应结构上的差异。

# 核心接口

  - Provider：图像编辑提供者接口，包含 Edit 与 Name 两个方法。
  - EditRequest / EditResult：编辑请求与结果模型，结果以自描述
    data URI 表达。
  - Config / New：按名称选择 GeminiProvider 或 OpenAIProvider。

# 行为约定

  - 增强提示词：用户指令以双引号嵌入固定模板（AugmentInstruction），
    模板不随请求变化。
  - 每次 Edit 恰好一次网络往返：无重试、无缓存、无排队。
  - 响应按顺序扫描内容部件，返回首个携带内联图像字节的部件；
    无图像部件时返回固定的 NO_IMAGE 错误。
  - 凭据类上游错误（如 "API key not valid"）被改写为固定的配置
    错误文案，原始报文不下发；其余上游错误保留原始细节。
  - 凭据在构造时注入（Config），提供者内部不读取环境变量。
*/
package editor
