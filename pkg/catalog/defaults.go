package catalog

// defaultEntries is the compiled-in catalog, in build order.
var defaultEntries = []struct {
	name  string
	entry Entry
}{
	{"rubeus", Entry{
		Repo:        "https://github.com/GhostPack/Rubeus.git",
		BuildCmd:    []string{"msbuild", "Rubeus.sln", "/p:Configuration=Release"},
		Output:      "Rubeus/bin/Release/Rubeus.exe",
		Requires:    "msbuild",
		BuildSystem: "msbuild",
		Description: "Kerberos interaction and abuse toolkit",
		Category:    "credential_access",
		Tags:        []string{"kerberos", "ad", "tickets"},
	}},
	{"seatbelt", Entry{
		Repo:        "https://github.com/GhostPack/Seatbelt.git",
		BuildCmd:    []string{"msbuild", "Seatbelt.sln", "/p:Configuration=Release"},
		Output:      "Seatbelt/bin/Release/Seatbelt.exe",
		Requires:    "msbuild",
		BuildSystem: "msbuild",
		Description: "Host-based enumeration and security checks",
		Category:    "enumeration",
		Tags:        []string{"enumeration", "recon", "host"},
	}},
	{"sharpup", Entry{
		Repo:        "https://github.com/GhostPack/SharpUp.git",
		BuildCmd:    []string{"msbuild", "SharpUp.sln", "/p:Configuration=Release"},
		Output:      "SharpUp/bin/Release/SharpUp.exe",
		Requires:    "msbuild",
		BuildSystem: "msbuild",
		Description: "Privilege escalation vulnerability checker",
		Category:    "privilege_escalation",
		Tags:        []string{"privesc", "enumeration"},
	}},
	{"sharphound", Entry{
		Repo:        "https://github.com/BloodHoundAD/SharpHound.git",
		BuildCmd:    []string{"dotnet", "build", "-c", "Release"},
		Output:      "src/bin/Release/net462/SharpHound.exe",
		Requires:    "dotnet",
		BuildSystem: "dotnet",
		Description: "BloodHound data collector for AD enumeration",
		Category:    "enumeration",
		Tags:        []string{"bloodhound", "ad", "graph"},
	}},
	{"certify", Entry{
		Repo:        "https://github.com/GhostPack/Certify.git",
		BuildCmd:    []string{"msbuild", "Certify.sln", "/p:Configuration=Release"},
		Output:      "Certify/bin/Release/Certify.exe",
		Requires:    "msbuild",
		BuildSystem: "msbuild",
		Description: "AD Certificate Services enumeration and abuse",
		Category:    "credential_access",
		Tags:        []string{"adcs", "certificates", "pki"},
	}},
	{"mimikatz", Entry{
		Repo:        "https://github.com/gentilkiwi/mimikatz.git",
		BuildCmd:    []string{"msbuild", "mimikatz.sln", "/p:Configuration=Release", "/p:Platform=x64"},
		Output:      "x64/Release/mimikatz.exe",
		Requires:    "msbuild",
		BuildSystem: "msbuild",
		Description: "Windows credential extraction toolkit",
		Category:    "credential_access",
		Tags:        []string{"credentials", "lsass", "dpapi"},
	}},
	{"inveigh", Entry{
		Repo:        "https://github.com/Kevin-Robertson/Inveigh.git",
		BuildCmd:    []string{"dotnet", "build", "Inveigh.sln", "-c", "Release"},
		Output:      "Inveigh/bin/Release/net462/Inveigh.exe",
		Requires:    "dotnet",
		BuildSystem: "dotnet",
		Description: "LLMNR/NBNS/mDNS/DNS spoofer and relay tool",
		Category:    "network",
		Tags:        []string{"spoofing", "relay", "network"},
	}},
}

// Default returns the compiled-in catalog.
func Default() *Catalog {
	specs := make([]ToolSpec, 0, len(defaultEntries))
	for _, d := range defaultEntries {
		s, err := NewToolSpec(d.name, d.entry)
		if err != nil {
			panic("catalog: invalid default entry: " + err.Error())
		}
		specs = append(specs, s)
	}
	c, err := New(specs...)
	if err != nil {
		panic("catalog: " + err.Error())
	}
	return c
}
