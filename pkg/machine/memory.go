// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package machine

// Mapping declares that Length words of ROM starting at Rom are copied into
// RAM at Ram when the machine resets.
type Mapping struct {
	Rom    uint16
	Length uint16
	Ram    uint16
}

type mmioRegion struct {
	lo, hi uint16
	dev    MMIO
}

// Memory holds the ROM image, the RAM image, the reset mappings and the MMIO
// dispatch table. ROM is immutable during execution; only Reset and Load
// replace it.
type Memory struct {
	rom      []uint16
	ram      [RAMLen]uint16
	mappings []Mapping
	regions  []mmioRegion
}

// Map registers dev on the inclusive address range [lo, hi]. Registrations
// survive Reset.
func (mem *Memory) Map(lo, hi uint16, dev MMIO) {
	mem.regions = append(mem.regions, mmioRegion{lo: lo, hi: hi, dev: dev})
}

func (mem *Memory) mmio(addr uint16) MMIO {
	for _, region := range mem.regions {
		if region.lo <= addr && addr <= region.hi {
			return region.dev
		}
	}

	return nil
}

// Reset zeroes RAM, installs rom, and applies the mappings in declared
// order. A mapping that would read past the ROM image or write past RAM
// fails without partial effects.
func (mem *Memory) Reset(rom []uint16, mappings []Mapping) error {
	return mem.Load(rom, mappings, nil)
}

// Load installs a complete image: RAM is copied verbatim (zeroed when ram
// is nil) and the mappings then apply over it, so a restored machine sees
// the same reset-time initialization a fresh one does.
func (mem *Memory) Load(rom []uint16, mappings []Mapping, ram []uint16) error {
	for _, mapping := range mappings {
		if int(mapping.Rom)+int(mapping.Length) > len(rom) {
			return &MappingError{
				Mapping: mapping, Detail: "source exceeds ROM",
			}
		}

		if int(mapping.Ram)+int(mapping.Length) > RAMLen {
			return &MappingError{
				Mapping: mapping, Detail: "destination exceeds RAM",
			}
		}
	}

	mem.rom = rom
	mem.mappings = mappings

	for i := range mem.ram {
		mem.ram[i] = 0x0000
	}

	copy(mem.ram[:], ram)

	for _, mapping := range mappings {
		copy(
			mem.ram[mapping.Ram:int(mapping.Ram)+int(mapping.Length)],
			rom[mapping.Rom:int(mapping.Rom)+int(mapping.Length)],
		)
	}

	return nil
}

func (mem *Memory) RomLen() int {
	return len(mem.rom)
}

func (mem *Memory) Rom() []uint16 {
	return mem.rom
}

func (mem *Memory) Mappings() []Mapping {
	return mem.mappings
}

// ReadRom is bounds-checked; the machine treats a program counter at or past
// the image end as halted before ever fetching.
func (mem *Memory) ReadRom(addr uint16) (uint16, error) {
	if int(addr) >= len(mem.rom) {
		return 0, &AddressError{Space: "ROM", Addr: addr, Length: len(mem.rom)}
	}

	return mem.rom[addr], nil
}

// ReadRam reads through the MMIO dispatch table; unmapped addresses read RAM
// directly.
func (mem *Memory) ReadRam(addr uint16) uint16 {
	if dev := mem.mmio(addr); dev != nil {
		return dev.Read(addr)
	}

	return mem.ram[addr]
}

// WriteRam writes through the MMIO dispatch table; unmapped addresses write
// RAM directly.
func (mem *Memory) WriteRam(addr uint16, value uint16) {
	if dev := mem.mmio(addr); dev != nil {
		dev.Write(addr, value)
		return
	}

	mem.ram[addr] = value
}

// Peek reads RAM without MMIO dispatch, for inspection and snapshots.
func (mem *Memory) Peek(addr uint16) uint16 {
	return mem.ram[addr]
}

// Poke writes RAM without MMIO dispatch, for snapshot restore and the
// debugger's memory editing.
func (mem *Memory) Poke(addr uint16, value uint16) {
	mem.ram[addr] = value
}

// RamRegion copies the RAM words in [addr, addr+length), clamped to the end
// of RAM. MMIO dispatch is bypassed.
func (mem *Memory) RamRegion(addr uint16, length int) []uint16 {
	start := int(addr)
	end := start + length

	if end > RAMLen {
		end = RAMLen
	}

	region := make([]uint16, end-start)
	copy(region, mem.ram[start:end])

	return region
}

// RomRegion copies the ROM words in [addr, addr+length), clamped to the end
// of the image.
func (mem *Memory) RomRegion(addr uint16, length int) []uint16 {
	start := int(addr)
	end := start + length

	if end > len(mem.rom) {
		end = len(mem.rom)
	}

	if start > end {
		start = end
	}

	region := make([]uint16, end-start)
	copy(region, mem.rom[start:end])

	return region
}

