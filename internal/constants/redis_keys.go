package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// WorkerModulePrefix 工人模块
	WorkerModulePrefix = "worker"
	// JobModulePrefix 岗位模块
	JobModulePrefix = "job"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"
	// VoiceModulePrefix 语音模块
	VoiceModulePrefix = "voice"
	// ChatModulePrefix 经验问答模块
	ChatModulePrefix = "chat"

	// EntitySession 会话实体
	EntitySession = "session"
	// EntityVector 向量实体
	EntityVector = "vector"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityMD5ToWorker MD5到工人ID的映射实体
	EntityMD5ToWorker = "md5_to_worker"
	// EntityMemory 聊天记忆实体
	EntityMemory = "memory"

	// KeyFileMD5Set 上传文件MD5集合，用于快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyTranscriptMD5Set 通话转写文本MD5集合，防止同一转写重复消费 (SET)
	// 格式: app:voice:dedup_set
	KeyTranscriptMD5Set = AppPrefix + ":" + VoiceModulePrefix + ":" + EntityDedupSet

	// KeyFileMD5ToWorkerID MD5到WorkerID的映射 (STRING)
	// 格式: app:file:md5_to_worker:{md5}
	KeyFileMD5ToWorkerID = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToWorker + ":%s"

	// KeyVoiceSession 语音会话缓存 (STRING, JSON)
	// 格式: app:voice:session:{callID}
	KeyVoiceSession = AppPrefix + ":" + VoiceModulePrefix + ":" + EntitySession + ":%s"

	// KeyJobVector 岗位向量缓存 (HASH)
	// 格式: app:job:vector:{jobID}
	KeyJobVector = AppPrefix + ":" + JobModulePrefix + ":" + EntityVector + ":%s"

	// ChatMemoryKeyPrefix 经验问答聊天记忆的键前缀 (LIST)
	// 格式: app:chat:memory:{sessionID}
	ChatMemoryKeyPrefix = AppPrefix + ":" + ChatModulePrefix + ":" + EntityMemory + ":"
)
