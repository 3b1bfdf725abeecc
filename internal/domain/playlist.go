package domain

type PlaylistEntry struct {
	VideoID string `json:"video_id"`
	AddedBy string `json:"added_by"`
}

func insertAt(list []PlaylistEntry, index int, entry PlaylistEntry) []PlaylistEntry {
	list = append(list, PlaylistEntry{})
	copy(list[index+1:], list[index:])
	list[index] = entry
	return list
}

func removeAt(list []PlaylistEntry, index int) []PlaylistEntry {
	return append(list[:index:index], list[index+1:]...)
}
