package model

// Type enumerates the operations a player can run against a target.
type Type string

const (
	TypeFileUpload   Type = "file_upload"
	TypeFileDownload Type = "file_download"
	TypeBruteforce   Type = "cracker_bruteforce"
	TypeOverflow     Type = "cracker_overflow"
	TypeInstallVirus Type = "install_virus"
	TypeVirusCollect Type = "virus_collect"
	TypeBankReveal   Type = "bank_reveal_password"
	TypeWireTransfer Type = "wire_transfer"
	TypeLogForger    Type = "log_forger"
)

// AllTypes returns every known process type.
func AllTypes() []Type {
	return []Type{
		TypeFileUpload,
		TypeFileDownload,
		TypeBruteforce,
		TypeOverflow,
		TypeInstallVirus,
		TypeVirusCollect,
		TypeBankReveal,
		TypeWireTransfer,
		TypeLogForger,
	}
}

// Valid reports whether t is a known process type.
func (t Type) Valid() bool {
	for _, candidate := range AllTypes() {
		if t == candidate {
			return true
		}
	}
	return false
}

// IsFileOperation reports whether t moves file content between servers.
func (t Type) IsFileOperation() bool {
	return t == TypeFileUpload || t == TypeFileDownload
}

// IsAttack reports whether t is an offensive operation against a target.
func (t Type) IsAttack() bool {
	switch t {
	case TypeBruteforce, TypeOverflow, TypeInstallVirus:
		return true
	}
	return false
}

// IsBankOperation reports whether t touches bank state.
func (t Type) IsBankOperation() bool {
	return t == TypeBankReveal || t == TypeWireTransfer
}

// SupportsCheckpoint reports whether partial work done by a process of this
// type is worth persisting when the process is paused or cancelled.
func (t Type) SupportsCheckpoint() bool {
	switch t {
	case TypeFileUpload, TypeFileDownload, TypeBruteforce, TypeVirusCollect:
		return true
	}
	return false
}
