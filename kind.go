package nostr

// Event kinds from NIP-01 and friends. Only the ones the client actually
// handles are listed here.
const (
	KindProfileMetadata        int = 0
	KindTextNote               int = 1
	KindRecommendServer        int = 2
	KindContactList            int = 3
	KindEncryptedDirectMessage int = 4
)
