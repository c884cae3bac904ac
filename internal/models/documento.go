package models

type DocumentoTipo string

const (
	DocumentoAta               DocumentoTipo = "ATA"
	DocumentoEstatuto          DocumentoTipo = "ESTATUTO"
	DocumentoConvencaoColetiva DocumentoTipo = "CONVENCAO_COLETIVA"
	DocumentoAcordoColetivo    DocumentoTipo = "ACORDO_COLETIVO"
	DocumentoOficio            DocumentoTipo = "OFICIO"
	DocumentoRelatorio         DocumentoTipo = "RELATORIO"
	DocumentoOutro             DocumentoTipo = "OUTRO"
)

func (t DocumentoTipo) Valid() bool {
	switch t {
	case DocumentoAta, DocumentoEstatuto, DocumentoConvencaoColetiva, DocumentoAcordoColetivo,
		DocumentoOficio, DocumentoRelatorio, DocumentoOutro:
		return true
	}
	return false
}

type Documento struct {
	Base
	Title        string        `gorm:"size:255;not null" json:"title"`
	Description  string        `gorm:"type:text" json:"description,omitempty"`
	Type         DocumentoTipo `gorm:"size:32;not null;index" json:"type"`
	FilePath     string        `gorm:"size:512;not null" json:"filePath"`
	FileName     string        `gorm:"size:255;not null" json:"fileName"`
	MimeType     string        `gorm:"size:127" json:"mimeType"`
	Size         int64         `json:"size"`
	SindicatoID  string        `gorm:"size:36;not null;index" json:"sindicatoId"`
	MemberID     *string       `gorm:"size:36;index" json:"memberId,omitempty"`
	UploadedByID string        `gorm:"size:36" json:"uploadedById"`

	Sindicato *Sindicato `gorm:"foreignKey:SindicatoID;constraint:OnDelete:CASCADE" json:"sindicato,omitempty"`
	Member    *User      `gorm:"foreignKey:MemberID;constraint:OnDelete:SET NULL" json:"member,omitempty"`
}
