package database

type TalkRepository interface {
	GetTalk(id int64) (*Talk, error)
	ListTalks(status string) ([]Talk, error)
	GetTalkCount() (int, error)
	GetStatusCounts() ([]StatusCount, error)

	UpsertTalk(snapshot TalkSnapshot) (UpsertResult, error)
	UpdateEnrichment(talkID int64, authors string, description string) (bool, error)
}

type FileRepository interface {
	ListFiles(talkID int64) ([]File, error)
	GetFileCount() (int, error)

	RecordFileIfAbsent(talkID int64, fileType string, fileURL string, localPath string) (bool, error)
}

var (
	_ TalkRepository = (*TalkRepo)(nil)
	_ FileRepository = (*FileRepo)(nil)
)
