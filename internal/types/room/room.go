package room

const Collection = "chatRooms"

// Record is the persisted room. Only an argon2id hash of the key is kept.
type Record struct {
	Name        string `firestore:"name" json:"name"`
	Description string `firestore:"description" json:"description"`
	SecretHash  []byte `firestore:"secretHash" json:"secretHash"`
	SecretSalt  []byte `firestore:"secretSalt" json:"secretSalt"`
}

// Room is what callers see; it never carries secret material.
type Room struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type EnterRoomRequest struct {
	Key string `json:"key"`
}

type EnterRoomResponse struct {
	Granted bool `json:"granted"`
}
