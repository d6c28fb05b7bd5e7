package errors

import "google.golang.org/grpc/codes"

// Agent 服务代码: 20 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 20 (RAG agent 服务)
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)
	ErrAgentInvalidRequest = Register(New(MakeCode(ServiceAgent, CategoryRequest, 1), 400, codes.InvalidArgument, "Invalid request parameters", "请求参数无效"))

	// 资源错误 (类别 04)
	ErrKnowledgeBaseNotFound = Register(New(MakeCode(ServiceAgent, CategoryResource, 1), 404, codes.NotFound, "Knowledge base not found", "知识库不存在"))
	ErrDocumentNotFound      = Register(New(MakeCode(ServiceAgent, CategoryResource, 2), 404, codes.NotFound, "Document not found", "文档不存在"))
	ErrSessionNotFound       = Register(New(MakeCode(ServiceAgent, CategoryResource, 3), 404, codes.NotFound, "Chat session not found", "会话不存在"))
	ErrQueryNotFound         = Register(New(MakeCode(ServiceAgent, CategoryResource, 4), 404, codes.NotFound, "Query not found", "查询不存在"))
	ErrModelNotFound         = Register(New(MakeCode(ServiceAgent, CategoryResource, 5), 404, codes.NotFound, "AI model not found", "模型不存在"))

	// 冲突错误 (类别 05)
	ErrKnowledgeBaseExists = Register(New(MakeCode(ServiceAgent, CategoryConflict, 1), 409, codes.AlreadyExists, "Knowledge base already exists", "知识库已存在"))

	// 权限错误 (类别 03)
	ErrKnowledgeBaseAccessDenied = Register(New(MakeCode(ServiceAgent, CategoryPermission, 1), 403, codes.PermissionDenied, "Access to knowledge base denied", "无知识库访问权限"))
	ErrModelAccessDenied         = Register(New(MakeCode(ServiceAgent, CategoryPermission, 2), 403, codes.PermissionDenied, "Access to AI model denied", "无模型访问权限"))
	ErrQueryAccessDenied         = Register(New(MakeCode(ServiceAgent, CategoryPermission, 3), 403, codes.PermissionDenied, "Access to query denied", "无查询访问权限"))

	// 查询相关错误
	ErrQueryTimeout = Register(New(MakeCode(ServiceAgent, CategoryTimeout, 1), 408, codes.DeadlineExceeded, "Query timeout", "查询超时"))
	ErrQueryFailed  = Register(New(MakeCode(ServiceAgent, CategoryInternal, 1), 500, codes.Internal, "Query processing failed", "查询处理失败"))

	// 授权引擎相关错误 (类别 10 - Network)
	ErrAuthzUnavailable = Register(New(MakeCode(ServiceAgent, CategoryNetwork, 1), 503, codes.Unavailable, "Authorization engine unavailable", "授权引擎不可用"))
	ErrTupleWriteFailed = Register(New(MakeCode(ServiceAgent, CategoryNetwork, 2), 502, codes.Unavailable, "Failed to write relationship tuples", "关系元组写入失败"))
)
