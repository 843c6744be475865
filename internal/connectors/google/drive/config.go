package drive

// Google Drive MIME types the source cares about.
const (
	// MimeTypeFolder marks a folder, mapped to a record group.
	MimeTypeFolder = "application/vnd.google-apps.folder"
)

// MyDriveID is the synthetic scope id for the user's own drive. Shared
// drives use their provider-native drive ids.
const MyDriveID = "my-drive"

// Config holds Google Drive source configuration.
type Config struct {
	// IncludeMyDrive adds the user's own drive as a sync scope alongside
	// shared drives.
	IncludeMyDrive bool

	// PageSize is the page size for API requests.
	PageSize int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		IncludeMyDrive: true,
		PageSize:       100,
	}
}

// fileFields is the field mask requested on file listings. Everything
// the change detector and hierarchy builder consume must be listed here.
// Inline permissions are only populated for My Drive files; shared
// drive ACLs come from the permissions listing instead.
const fileFields = "id, name, mimeType, version, parents, driveId, trashed, " +
	"createdTime, modifiedTime, webViewLink, " +
	"permissions(type, role, allowFileDiscovery)"
