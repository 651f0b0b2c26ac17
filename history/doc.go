// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package history 提供编辑历史的持久化仓储。

每次编辑提交（无论成败）都会落一条 EditRecord：会话、提供者、模型、
指令、状态、错误码与耗时。Repository 基于 GORM 实现，支持 PostgreSQL、
MySQL 与 SQLite，同时实现 session.Recorder 接口，由会话编排器在提交
结束后写入。

查询侧提供按会话过滤（BySession）、全局最近记录（Recent）、计数
（Count）与按时间清理（Purge）。
*/
package history
