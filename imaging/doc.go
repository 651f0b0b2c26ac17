// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 imaging 提供图像编码与 data URI 编解码能力。

# 概述

本包是编辑管线的最底层：把用户上传的二进制图像转换为可嵌入请求体的
base64 载荷（不含媒体类型前缀），并负责自描述 data URI 的组装、解析
与下载扩展名推导。

# 主要能力

  - Encode / EncodeBytes：单次读取，失败不重试；空输入返回固定的
    EMPTY_PAYLOAD 错误
  - BuildDataURI / ParseDataURI：data:<mediaType>;base64,<payload> 的
    组装与逗号分割解析
  - ExtensionForMediaType：image/jpeg → jpeg，缺失或畸形时回退 png
  - Blob：原始字节 + 声明的媒体类型（不做结构校验）
*/
package imaging
