// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 session 实现会话编排：围绕"选图 → 提交编辑 → 预览/下载"的状态机，
维护单会话串行编辑的并发约束。

# 状态机

每个会话由 Session 表示：源图像（Blob）、预览令牌、当前结果、
in-flight 标志与最近一次错误文案。状态迁移全部经由 Manager：

  - SelectImage：替换源图像，轮换预览令牌（旧预览句柄随之失效），
    清空既有结果与错误
  - SubmitEdit：校验先行；in-flight 守卫保证同一会话至多一个在途
    提交，守卫无论成败必然释放；提供者调用在锁外进行
  - Preview：凭当前令牌取回源图像，过期令牌返回 410
  - Download：返回解码后的结果字节，文件名为固定主干加媒体类型
    推导的扩展名

# 存储

Store 接口提供两种实现：进程内 MemoryStore（滑动 TTL + 周期清扫）
与基于共享缓存的 RedisStore（多实例共享会话状态）。过期记录与不存在
的记录行为一致。

# 审计

Recorder 接口在每次提交结束后接收 Outcome（成功或失败、耗时、错误
码）。记录失败只打日志，绝不影响编辑结果。
*/
package session
