package model

type Report struct {
	FileName string
	Content  []byte
	// заполняется, если файл не влез в лимит телеграма и был загружен в облако
	DownloadLink string
}
