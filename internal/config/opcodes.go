package config

// defaultServerOpcodes is the compiled-in opcode table for server-direction
// IPC messages. Values are arbitrary but stable placeholders for "whatever
// this build's default protocol revision happens to use" — a real
// deployment always overrides these via Load, since opcode numbers change
// every time the protocol revs (spec.md §3, §6).
func defaultServerOpcodes() map[string]uint16 {
	return map[string]uint16{
		"ActorStats":              0x0162,
		"ActorSpawn":              0x0163,
		"ActorSpawnNpc":           0x0164,
		"ActorSpawnNpc2":          0x0165,
		"ActorDespawn":            0x0166,
		"ActorSetPos":             0x0167,
		"ActorMove":               0x0168,
		"ActorModelEquip":         0x0169,
		"PlayerParams":            0x016A,
		"AggroList":               0x016B,
		"InitZone":                0x016C,
		"EffectResult":            0x016D,
		"ActorStatusEffectList":   0x016E,
		"ActorStatusEffectList2":  0x016F,
		"ActorStatusEffectListBoss": 0x0170,
		"PartyList":               0x0171,
		"PartyModify":             0x0172,
		"AllianceList":            0x0173,
		"Effect01":                0x0174,
		"Effect08":                0x0175,
		"Effect16":                0x0176,
		"Effect24":                0x0177,
		"Effect32":                0x0178,
		"ActorControl":            0x0179,
		"ActorControlSelf":        0x017A,
		"ActorControlTarget":      0x017B,
		"Chat":                    0x017C,
		"ChatParty":               0x017D,
		"ChatTell":                0x017E,
	}
}

// defaultClientOpcodes is the compiled-in opcode table for client-direction
// IPC messages.
func defaultClientOpcodes() map[string]uint16 {
	return map[string]uint16{
		"RequestMove":         0x0212,
		"RequestMoveInstance": 0x0213,
		"RequestChat":         0x0214,
		"RequestChatParty":    0x0215,
		"RequestTell":         0x0216,
	}
}
